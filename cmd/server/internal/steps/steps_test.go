package steps

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/queue"
)

type fakeRunner struct {
	checkReady []uuid.UUID
	transcode  []uuid.UUID
	analyze    []uuid.UUID
	err        error
}

func (f *fakeRunner) CheckReady(_ context.Context, id uuid.UUID) error {
	f.checkReady = append(f.checkReady, id)
	return f.err
}

func (f *fakeRunner) Transcode(_ context.Context, id uuid.UUID) error {
	f.transcode = append(f.transcode, id)
	return f.err
}

func (f *fakeRunner) Analyze(_ context.Context, id uuid.UUID) error {
	f.analyze = append(f.analyze, id)
	return f.err
}

type fakeTopics struct {
	generate []uuid.UUID
	err      error
}

func (f *fakeTopics) Generate(_ context.Context, id uuid.UUID) error {
	f.generate = append(f.generate, id)
	return f.err
}

func TestHandle(t *testing.T) {
	submissionID := uuid.New()

	t.Run("DispatchesByKind", func(t *testing.T) {
		tests := []struct {
			name     string
			kind     string
			recorded func(*fakeRunner, *fakeTopics) []uuid.UUID
		}{
			{
				name: "CheckReady",
				kind: "check_ready",
				recorded: func(r *fakeRunner, _ *fakeTopics) []uuid.UUID {
					return r.checkReady
				},
			},
			{
				name: "Transcode",
				kind: "transcode",
				recorded: func(r *fakeRunner, _ *fakeTopics) []uuid.UUID {
					return r.transcode
				},
			},
			{
				name: "Analyze",
				kind: "analyze",
				recorded: func(r *fakeRunner, _ *fakeTopics) []uuid.UUID {
					return r.analyze
				},
			},
			{
				name: "GenerateTopic",
				kind: "generate_topic",
				recorded: func(_ *fakeRunner, tp *fakeTopics) []uuid.UUID {
					return tp.generate
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runner := &fakeRunner{}
				topics := &fakeTopics{}
				handler := NewStepMsgHandler(runner, topics)

				message := fmt.Sprintf(
					`{"kind": %q, "submission_id": %q, "retry": 0}`,
					tt.kind, submissionID,
				)

				err := handler.Handle(context.Background(), []byte(message))

				require.NoError(t, err)
				assert.Equal(t, []uuid.UUID{submissionID}, tt.recorded(runner, topics), "wrong dispatch target")
			})
		}
	})

	t.Run("MalformedJSONIsPoisoned", func(t *testing.T) {
		handler := NewStepMsgHandler(&fakeRunner{}, &fakeTopics{})

		err := handler.Handle(context.Background(), []byte("not json"))

		var poison *queue.PoisonError
		assert.ErrorAs(t, err, &poison, "bad payloads must not be redelivered")
	})

	t.Run("UnknownKindIsPoisoned", func(t *testing.T) {
		handler := NewStepMsgHandler(&fakeRunner{}, &fakeTopics{})

		message := fmt.Sprintf(`{"kind": "explode", "submission_id": %q}`, submissionID)
		err := handler.Handle(context.Background(), []byte(message))

		var poison *queue.PoisonError
		assert.ErrorAs(t, err, &poison)
	})

	t.Run("MissingSubmissionIDIsPoisoned", func(t *testing.T) {
		handler := NewStepMsgHandler(&fakeRunner{}, &fakeTopics{})

		err := handler.Handle(context.Background(), []byte(`{"kind": "transcode"}`))

		var poison *queue.PoisonError
		assert.ErrorAs(t, err, &poison)
	})

	t.Run("InvalidUUIDIsPoisoned", func(t *testing.T) {
		handler := NewStepMsgHandler(&fakeRunner{}, &fakeTopics{})

		err := handler.Handle(
			context.Background(),
			[]byte(`{"kind": "transcode", "submission_id": "not-a-uuid"}`),
		)

		var poison *queue.PoisonError
		assert.ErrorAs(t, err, &poison)
	})

	t.Run("StepErrorsPropagateForRedelivery", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("database offline")}
		handler := NewStepMsgHandler(runner, &fakeTopics{})

		message := fmt.Sprintf(`{"kind": "transcode", "submission_id": %q}`, submissionID)
		err := handler.Handle(context.Background(), []byte(message))

		require.Error(t, err)

		var poison *queue.PoisonError
		assert.False(t, errors.As(err, &poison), "infrastructure errors must stay retryable")
	})
}
