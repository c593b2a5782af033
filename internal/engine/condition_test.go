package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestEvaluateCondition(t *testing.T) {
	env := map[string]interface{}{
		"trigger": map[string]interface{}{
			"source": "appointment",
			"count":  float64(3),
		},
		"vars": map[string]interface{}{
			"vip": true,
		},
		"outputs": map[string]interface{}{},
	}

	tests := []struct {
		name      string
		condition *string
		want      bool
		wantErr   bool
	}{
		{name: "nil condition is true", condition: nil, want: true},
		{name: "empty condition is true", condition: strptr(""), want: true},
		{name: "trigger field equality", condition: strptr(`trigger.source == "appointment"`), want: true},
		{name: "trigger field mismatch", condition: strptr(`trigger.source == "webhook"`), want: false},
		{name: "numeric comparison", condition: strptr(`trigger.count > 2`), want: true},
		{name: "variable lookup", condition: strptr(`vars.vip`), want: true},
		{name: "boolean combination", condition: strptr(`vars.vip && trigger.count < 10`), want: true},
		{name: "syntax error", condition: strptr(`trigger.source ==`), wantErr: true},
		{name: "non boolean result", condition: strptr(`trigger.count + 1`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCondition(tt.condition, env)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
