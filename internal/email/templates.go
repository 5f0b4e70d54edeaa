package email

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"
)

// TemplateSubscription is the confirmation sent to new channel subscribers.
const TemplateSubscription = "subscription_confirmation"

// SubscriptionSubject is the subject line of the subscription confirmation.
const SubscriptionSubject = "Welcome to My YouTube Channel!"

var subscriptionHTML = htmltemplate.Must(htmltemplate.New("subscription.html").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <h2>Thanks for subscribing!</h2>
  <p>Hi {{.Email}},</p>
  <p>You're now on the list for new videos and updates from the channel.</p>
  <p><a href="{{.ChannelURL}}" style="background: #ff0000; color: #fff; padding: 10px 18px; text-decoration: none; border-radius: 4px;">Visit the channel</a></p>
  <p>See you there!</p>
</body>
</html>
`))

var subscriptionText = texttemplate.Must(texttemplate.New("subscription.txt").Parse(`Hi {{.Email}},

Thanks for subscribing! You're now on the list for new videos and updates from the channel.

Visit the channel: {{.ChannelURL}}

See you there!
`))

type subscriptionData struct {
	Email      string
	ChannelURL string
}

// SubscriptionConfirmation renders the welcome message for a new subscriber.
func SubscriptionConfirmation(to, channelURL string) (Message, error) {
	data := subscriptionData{Email: to, ChannelURL: channelURL}

	var html, text bytes.Buffer
	if err := subscriptionHTML.Execute(&html, data); err != nil {
		return Message{}, err
	}
	if err := subscriptionText.Execute(&text, data); err != nil {
		return Message{}, err
	}

	return Message{
		Template: TemplateSubscription,
		To:       to,
		Subject:  SubscriptionSubject,
		HTML:     html.String(),
		Text:     text.String(),
	}, nil
}
