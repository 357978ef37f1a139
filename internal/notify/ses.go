package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/auth-api/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"go.uber.org/zap"
)

const charset = "UTF-8"

// sesSender is the part of the SES client the notifier needs
type sesSender interface {
	SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...request.Option) (*ses.SendEmailOutput, error)
}

type SESNotifier struct {
	from    string
	timeout time.Duration
	client  sesSender
}

func NewSESNotifier(cfg *config.Mail) (*SESNotifier, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.SES.Region),
	}

	// Without static keys the default chain (env, shared config, instance role) is used
	if cfg.SES.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session, %w", err)
	}

	return &SESNotifier{
		from:    cfg.From,
		timeout: cfg.Timeout,
		client:  ses.New(sess),
	}, nil
}

func (n *SESNotifier) SendResetLink(ctx context.Context, m *ResetMail) error {
	input, err := n.buildInput(m)
	if err != nil {
		return &DeliveryError{Kind: KindUnknown, Transport: "ses", Err: err}
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	out, err := n.client.SendEmailWithContext(ctx, input)
	if err != nil {
		return &DeliveryError{Kind: classifySES(ctx, err), Transport: "ses", Err: err}
	}

	zap.L().Debug("Reset email sent", zap.String("transport", "ses"), zap.String("message_id", aws.StringValue(out.MessageId)))
	return nil
}

func (n *SESNotifier) buildInput(m *ResetMail) (*ses.SendEmailInput, error) {
	subject, html, text, err := render(m)
	if err != nil {
		return nil, err
	}

	return &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(m.To)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(subject)},
			Body: &ses.Body{
				Html: &ses.Content{Charset: aws.String(charset), Data: aws.String(html)},
				Text: &ses.Content{Charset: aws.String(charset), Data: aws.String(text)},
			},
		},
	}, nil
}

func classifySES(ctx context.Context, err error) ErrorKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimedOut
	}

	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return KindUnknown
	}

	switch aerr.Code() {
	case request.CanceledErrorCode, request.ErrCodeResponseTimeout:
		return KindTimedOut
	case request.ErrCodeRequestError:
		return KindConnectionFailed
	case "InvalidClientTokenId", "SignatureDoesNotMatch", "AccessDenied", "AccessDeniedException",
		"UnrecognizedClientException", "MissingAuthenticationToken", "ExpiredToken", "NoCredentialProviders":
		return KindAuthFailed
	}

	return KindUnknown
}
