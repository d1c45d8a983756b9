package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearbrook/clinic-ops/internal/notifications"
	"github.com/clearbrook/clinic-ops/pkg/logging"
)

type fakeSender struct {
	sent    []EmailMessage
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, msg EmailMessage) error {
	if err, ok := f.failFor[msg.To]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestDeliverFansOutToAllRecipients(t *testing.T) {
	sender := &fakeSender{}
	svc := NewService(sender, []string{"front@clinic.test", "ops@clinic.test"}, logging.New("error"))
	require.NotNil(t, svc)

	rec := notifications.Record{
		Body:     "Dana Reyes is ready to be seen (appointment A1)",
		Category: notifications.CategoryAppointments,
		OrgID:    "org-1",
	}
	require.NoError(t, svc.Deliver(context.Background(), rec))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "[appointments] Dana Reyes is ready to be seen (appointment A1)", sender.sent[0].Subject)
	assert.Contains(t, sender.sent[0].Body, "Clinic: org-1")
}

func TestDeliverPartialFailure(t *testing.T) {
	sender := &fakeSender{failFor: map[string]error{"bad@clinic.test": errors.New("mailbox full")}}
	svc := NewService(sender, []string{"bad@clinic.test", "ops@clinic.test"}, logging.New("error"))
	require.NotNil(t, svc)

	err := svc.Deliver(context.Background(), notifications.Record{Body: "x", Category: "appointments"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad@clinic.test")
	assert.Len(t, sender.sent, 1, "remaining recipients still get their copy")
}

func TestNewServiceDisabled(t *testing.T) {
	assert.Nil(t, NewService(nil, []string{"a@b.test"}, nil))
	assert.Nil(t, NewService(&fakeSender{}, nil, nil))

	var svc *Service
	assert.NoError(t, svc.Deliver(context.Background(), notifications.Record{}), "nil service is a safe no-op")
}
