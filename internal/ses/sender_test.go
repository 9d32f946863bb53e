package ses

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeAPI) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-msg-1")}, nil
}

func TestSend(t *testing.T) {
	api := &fakeAPI{}
	sender := &Sender{client: api, from: "noreply@converze.com", configured: true}

	id, err := sender.Send(context.Background(), "jo@example.com", "Hello", "<p>hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "ses-msg-1", id)

	require.NotNil(t, api.input)
	assert.Equal(t, "noreply@converze.com", aws.ToString(api.input.FromEmailAddress))
	assert.Equal(t, []string{"jo@example.com"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Hello", aws.ToString(api.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(api.input.Content.Simple.Body.Html.Data))
}

func TestSendError(t *testing.T) {
	api := &fakeAPI{err: errors.New("throttled")}
	sender := &Sender{client: api, from: "noreply@converze.com", configured: true}

	_, err := sender.Send(context.Background(), "jo@example.com", "Hello", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestConfigured(t *testing.T) {
	assert.False(t, (&Sender{}).Configured())
	assert.True(t, (&Sender{configured: true}).Configured())
	assert.Equal(t, "SES", (&Sender{}).Name())
}
