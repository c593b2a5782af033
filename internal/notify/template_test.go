package notify

import (
	"testing"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name        string
		template    models.MessageTemplate
		data        map[string]interface{}
		wantSubject string
		wantBody    string
		wantErr     bool
	}{
		{
			name: "subject and body",
			template: models.MessageTemplate{
				Name:    "confirmation",
				Subject: strptr("Reminder for {{.contact_name}}"),
				Body:    "Hi {{.contact_name}}, see you at {{.time}}.",
			},
			data:        map[string]interface{}{"contact_name": "Dana", "time": "10:00"},
			wantSubject: "Reminder for Dana",
			wantBody:    "Hi Dana, see you at 10:00.",
		},
		{
			name: "no subject for sms",
			template: models.MessageTemplate{
				Name: "sms-reminder",
				Body: "Appointment at {{.time}}",
			},
			data:     map[string]interface{}{"time": "10:00"},
			wantBody: "Appointment at 10:00",
		},
		{
			name: "missing key does not error",
			template: models.MessageTemplate{
				Name: "sparse",
				Body: "Hello {{.nobody}}!",
			},
			data:     map[string]interface{}{},
			wantBody: "Hello <no value>!",
		},
		{
			name: "malformed body",
			template: models.MessageTemplate{
				Name: "broken",
				Body: "Hello {{.unclosed",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderTemplate(&tt.template, tt.data)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, got.Subject)
			assert.Equal(t, tt.wantBody, got.Body)
		})
	}
}
