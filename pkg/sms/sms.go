// Package sms sends text messages through Twilio.
package sms

import (
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Client sends from one Twilio number.
type Client struct {
	fromNumber string
	create     func(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

func NewClient(accountSID, authToken, fromNumber string) *Client {
	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Client{fromNumber: fromNumber, create: rest.Api.CreateMessage}
}

// Send texts body to toNumber, which must be in E.164 form.
func (c *Client) Send(toNumber, body string) error {
	if !strings.HasPrefix(toNumber, "+") {
		return fmt.Errorf("invalid phone number: %s", toNumber)
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(c.fromNumber)
	params.SetBody(body)

	if _, err := c.create(params); err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", toNumber, err)
	}
	return nil
}
