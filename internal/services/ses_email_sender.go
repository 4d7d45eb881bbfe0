package services

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client sesAPI
	// Must be a verified Amazon SES identity.
	from string
}

func NewSESSender(awsConfig aws.Config, from string) *SESSender {
	return &SESSender{client: ses.NewFromConfig(awsConfig), from: from}
}

func (s *SESSender) Send(ctx context.Context, msg Message) error {
	charset := aws.String("UTF-8")
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: charset},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: charset},
				Text: &types.Content{Data: aws.String(msg.Text), Charset: charset},
			},
		},
	})
	return err
}
