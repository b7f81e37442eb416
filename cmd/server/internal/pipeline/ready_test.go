package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clipcoach/clipcoach-api/clipcoach-api/internal/videohost"
)

func TestDecideReady(t *testing.T) {
	tests := []struct {
		name     string
		retry    int
		obs      hostObservation
		expected readyAction
	}{
		{
			name:     "ReadyAdvances",
			retry:    0,
			obs:      hostObservation{state: videohost.AssetStateReady},
			expected: actionAdvance,
		},
		{
			name:     "ReadyAdvancesEvenOnLastRetry",
			retry:    MaxPollRetries,
			obs:      hostObservation{state: videohost.AssetStateReady},
			expected: actionAdvance,
		},
		{
			name:     "ProcessingReschedules",
			retry:    5,
			obs:      hostObservation{state: videohost.AssetStateProcessing},
			expected: actionReschedule,
		},
		{
			name:     "ProcessingTimesOutAtBudget",
			retry:    MaxPollRetries,
			obs:      hostObservation{state: videohost.AssetStateProcessing},
			expected: actionTimeout,
		},
		{
			name:     "TransportFailureReschedules",
			retry:    5,
			obs:      hostObservation{transportErr: true},
			expected: actionReschedule,
		},
		{
			name:     "TransportFailureTimesOutAtBudget",
			retry:    MaxPollRetries,
			obs:      hostObservation{transportErr: true},
			expected: actionTimeout,
		},
		{
			name:     "NotFoundToleratedEarly",
			retry:    NotFoundTolerance - 1,
			obs:      hostObservation{notFound: true},
			expected: actionReschedule,
		},
		{
			name:     "NotFoundErrorsPastTolerance",
			retry:    NotFoundTolerance,
			obs:      hostObservation{notFound: true},
			expected: actionError,
		},
		{
			name:     "ErroredParksWithMessage",
			retry:    0,
			obs:      hostObservation{state: videohost.AssetStateErrored, errorDetail: "bad codec"},
			expected: actionError,
		},
		{
			name:     "UnknownStateParks",
			retry:    0,
			obs:      hostObservation{state: videohost.AssetState("mystery")},
			expected: actionError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, message := decideReady(tt.retry, tt.obs)

			assert.Equal(t, tt.expected, action, "wrong action")
			if tt.expected == actionError || tt.expected == actionTimeout {
				assert.NotEmpty(t, message, "parked submissions need a message")
			}
		})
	}

	t.Run("ErroredMessageCarriesDetail", func(t *testing.T) {
		_, message := decideReady(0, hostObservation{
			state:       videohost.AssetStateErrored,
			errorDetail: "bad codec",
		})

		assert.Contains(t, message, "bad codec", "host detail should surface to the owner")
	})
}
