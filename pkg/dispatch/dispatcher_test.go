package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grindhub/pkg/agent"
	"grindhub/pkg/agent/llm"
	"grindhub/pkg/completion"
	"grindhub/pkg/dataapi"
	"grindhub/pkg/intent"
	"grindhub/pkg/responder"
)

type stubData struct{ userIDs []string }

func (s *stubData) Fetch(_ context.Context, _ dataapi.Endpoint, q dataapi.Query) dataapi.Result {
	s.userIDs = append(s.userIDs, q.UserID)
	return dataapi.Result{Success: true, Payload: []byte(`{"success":true}`)}
}

func (s *stubData) FetchUser(_ context.Context, userID string) (string, error) {
	s.userIDs = append(s.userIDs, userID)
	return "ada", nil
}

// TestTotality maps every intent to exactly one profile with a matching intent.
func TestTotality(t *testing.T) {
	d, err := NewDispatcher(nil, nil)
	require.NoError(t, err)
	for _, in := range intent.All() {
		p, ok := d.Profile(in)
		require.True(t, ok, in)
		assert.Equal(t, in, p.Intent)
	}
	_, ok := d.Profile("Homework Help")
	assert.False(t, ok)
}

func TestNewDispatcherRejectsIncompleteRegistry(t *testing.T) {
	all := responder.Profiles()
	_, err := NewDispatcher(nil, nil, all[:5]...)
	assert.ErrorContains(t, err, "no responder registered")

	_, err = NewDispatcher(nil, nil, append(all, all[0])...)
	assert.ErrorContains(t, err, "registered by both")

	bad := all[0]
	bad.Intent = "nope"
	_, err = NewDispatcher(nil, nil, bad)
	assert.ErrorContains(t, err, "unknown intent")
}

func TestDispatchUnknownIntent(t *testing.T) {
	mock := agent.NewMockLLMClient()
	d, err := NewDispatcher(completion.New(mock, nil, completion.Options{}), nil)
	require.NoError(t, err)

	reply, err := d.Dispatch(context.Background(), "Homework Help", "help", "", "u1")
	require.NoError(t, err)
	assert.Equal(t, UnknownIntentReply, reply)
	assert.Zero(t, mock.Calls())
}

// TestDispatchRoutesAndPassesUser checks that only user-aware profiles see the user ID.
func TestDispatchRoutesAndPassesUser(t *testing.T) {
	tests := []struct {
		in       intent.Intent
		wantUser bool
	}{
		{intent.GeneralInformation, false},
		{intent.GreetingFarewell, false},
		{intent.MotivationStressSupport, true},
		{intent.PerformanceAssignmentQuery, true},
		{intent.StudyPlanRequest, true},
		{intent.Other, true},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			mock := agent.NewMockLLMClient().
				On(llm.LabelExtract, agent.Reply(`{}`)).
				On(llm.LabelReply, agent.Reply("reply for "+tt.in.String()))
			data := &stubData{}
			d, err := NewDispatcher(completion.New(mock, nil, completion.Options{}), data)
			require.NoError(t, err)

			reply, err := d.Dispatch(context.Background(), tt.in, "msg", "ctx", "u1")
			require.NoError(t, err)
			assert.Equal(t, "reply for "+tt.in.String(), reply)
			if tt.wantUser {
				require.NotEmpty(t, data.userIDs)
				assert.Equal(t, "u1", data.userIDs[0])
			} else {
				assert.Empty(t, data.userIDs)
			}
		})
	}
}
