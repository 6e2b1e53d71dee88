package tasks_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hamzashabbeer/retreat-finder--sub000/internal/config"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/tasks"
	"github.com/hamzashabbeer/retreat-finder--sub000/internal/utils"
)

// MockEmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	args := m.Called(ctx, to, subject, rawMessage)
	return args.Error(0)
}

func TestHandleEmailDeliverTask_Success(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	cfg := &config.Config{SmtpFromAddress: "bookings@retreatfinder.example.com"}

	p := tasks.NewTaskProcessor(cfg, mockEmailSender, nil, nil)

	task, err := tasks.NewEmailDeliverTask(
		"customer@example.com",
		"Booking confirmed",
		"Your booking for Jungle Yoga Week is confirmed.",
	)
	assert.NoError(t, err)

	expectedTo := "customer@example.com"
	expectedSubject := "Booking confirmed"

	mockEmailSender.On("Send",
		mock.Anything,
		[]string{expectedTo},
		expectedSubject,
		mock.MatchedBy(func(rawMsg []byte) bool {
			msgStr := string(rawMsg)
			assert.Contains(t, msgStr, fmt.Sprintf("To: %s", expectedTo))
			assert.Contains(t, msgStr, fmt.Sprintf("From: %s", cfg.SmtpFromAddress))
			assert.Contains(t, msgStr, fmt.Sprintf("Subject: %s", expectedSubject))
			assert.Contains(t, msgStr, "Jungle Yoga Week")
			return true
		}),
	).Return(nil)

	err = p.HandleEmailDeliverTask(context.Background(), task)

	assert.NoError(t, err)
	mockEmailSender.AssertExpectations(t)
}

func TestHandleEmailDeliverTask_MalformedPayload(t *testing.T) {
	mockEmailSender := new(MockEmailSender)
	p := tasks.NewTaskProcessor(&config.Config{}, mockEmailSender, nil, nil)

	task := asynq.NewTask(tasks.TypeEmailDeliver, []byte("{not json"))

	err := p.HandleEmailDeliverTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Malformed payload should not be retried")
	mockEmailSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleImageProcessTask_InvalidRetreatID(t *testing.T) {
	p := tasks.NewTaskProcessor(&config.Config{}, nil, nil, nil)

	payloadBytes, _ := json.Marshal(tasks.ImageTaskPayload{
		S3Key:     "uploads/some/key.jpg",
		RetreatID: "not-a-sixid",
	})
	task := asynq.NewTask(tasks.TypeImageProcess, payloadBytes)

	err := p.HandleImageProcessTask(context.Background(), task)

	assert.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "Invalid retreat ID should not be retried")
}

func TestNewImageProcessTask_Payload(t *testing.T) {
	retreatID := utils.NewSixID()
	task, err := tasks.NewImageProcessTask("uploads/a/b/c.jpg", retreatID)
	assert.NoError(t, err)
	assert.Equal(t, tasks.TypeImageProcess, task.Type())

	var payload tasks.ImageTaskPayload
	assert.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "uploads/a/b/c.jpg", payload.S3Key)
	assert.Equal(t, retreatID.String(), payload.RetreatID)
}

// The worker accepts whatever the presign step let through, so all common
// upload formats must have a registered decoder.
func TestImageDecodeSupportsCommonUploadFormats(t *testing.T) {
	onePxPNG, err := base64.StdEncoding.DecodeString(
		"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")
	assert.NoError(t, err)
	onePxGIF, err := base64.StdEncoding.DecodeString(
		"R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7")
	assert.NoError(t, err)

	for _, tc := range []struct {
		format string
		data   []byte
	}{
		{"png", onePxPNG},
		{"gif", onePxGIF},
	} {
		_, format, err := image.Decode(bytes.NewReader(tc.data))
		assert.NoError(t, err, "decoding a %s upload", tc.format)
		assert.Equal(t, tc.format, format)
	}
}
