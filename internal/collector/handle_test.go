package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yacobolo/tokensmith/internal/tokens"
)

func TestRodHandle_InduceObservedStates(t *testing.T) {
	// no page: these states must not touch the browser
	h := &rodHandle{selector: "button.save"}

	tests := []struct {
		state tokens.StateName
	}{
		{tokens.StateDefault},
		{tokens.StateDisabled},
		{tokens.StateSelected},
		{tokens.StatePressed},
		{tokens.StateVisited},
		{tokens.StateLoading},
	}
	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.NoError(t, h.Induce(context.Background(), tt.state))
		})
	}
}
