package notify

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/domain/repositories"
	"github.com/google/uuid"
)

// Resolver looks up message templates and renders them against a context map.
type Resolver interface {
	TemplatesByChannel(ctx context.Context, channel string) ([]models.MessageTemplate, error)
	Render(ctx context.Context, templateID uuid.UUID, data map[string]interface{}) (Rendered, error)
}

type TemplateResolver struct {
	repo *repositories.TemplateRepository
}

func NewTemplateResolver(repo *repositories.TemplateRepository) *TemplateResolver {
	return &TemplateResolver{repo: repo}
}

func (r *TemplateResolver) TemplatesByChannel(ctx context.Context, channel string) ([]models.MessageTemplate, error) {
	return r.repo.FindByChannel(ctx, channel)
}

func (r *TemplateResolver) Render(ctx context.Context, templateID uuid.UUID, data map[string]interface{}) (Rendered, error) {
	tmpl, err := r.repo.FindByID(ctx, templateID)
	if err != nil {
		return Rendered{}, fmt.Errorf("template %s not found: %w", templateID, err)
	}
	return RenderTemplate(tmpl, data)
}

// RenderTemplate renders subject and body with text/template. Exported so
// tests and in-memory resolvers share the exact production rendering path.
func RenderTemplate(tmpl *models.MessageTemplate, data map[string]interface{}) (Rendered, error) {
	var out Rendered

	if tmpl.Subject != nil && *tmpl.Subject != "" {
		subject, err := renderOne(tmpl.Name+":subject", *tmpl.Subject, data)
		if err != nil {
			return Rendered{}, err
		}
		out.Subject = subject
	}

	body, err := renderOne(tmpl.Name+":body", tmpl.Body, data)
	if err != nil {
		return Rendered{}, err
	}
	out.Body = body

	return out, nil
}

func renderOne(name, src string, data map[string]interface{}) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}
