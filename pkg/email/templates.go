package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// Template represents a predefined email template type.
type Template string

const (
	// TemplateMemberAdded notifies a user they were added to a team.
	TemplateMemberAdded Template = "member_added"
	// TemplateRoleChanged notifies a user their team role changed.
	TemplateRoleChanged Template = "role_changed"
	// TemplateMemberRemoved notifies a user they were removed from a team.
	TemplateMemberRemoved Template = "member_removed"
)

// MemberAddedData holds data for the member added template.
type MemberAddedData struct {
	UserName  string
	TeamName  string
	Role      string
	TeamURL   string
	AddedBy   string
	AppName   string
}

// RoleChangedData holds data for the role changed template.
type RoleChangedData struct {
	UserName  string
	TeamName  string
	OldRole   string
	NewRole   string
	TeamURL   string
	ChangedBy string
	AppName   string
}

// MemberRemovedData holds data for the member removed template.
type MemberRemovedData struct {
	UserName  string
	TeamName  string
	RemovedBy string
	AppName   string
}

// TemplateEngine handles email template rendering.
type TemplateEngine struct {
	templates map[Template]*templateDef
}

type templateDef struct {
	subjectTmpl *template.Template
	bodyTmpl    *template.Template
}

// NewTemplateEngine creates a new template engine with all predefined templates.
func NewTemplateEngine() *TemplateEngine {
	engine := &TemplateEngine{
		templates: make(map[Template]*templateDef),
	}
	engine.registerTemplates()
	return engine
}

// Render renders a template with the given data.
func (e *TemplateEngine) Render(tmpl Template, data any) (subject string, body string, err error) {
	def, ok := e.templates[tmpl]
	if !ok {
		return "", "", fmt.Errorf("template %s not found", tmpl)
	}

	var subjectBuf bytes.Buffer
	if err := def.subjectTmpl.Execute(&subjectBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute subject template: %w", err)
	}

	var bodyBuf bytes.Buffer
	if err := def.bodyTmpl.Execute(&bodyBuf, data); err != nil {
		return "", "", fmt.Errorf("failed to execute body template: %w", err)
	}

	return subjectBuf.String(), bodyBuf.String(), nil
}

func (e *TemplateEngine) registerTemplates() {
	e.templates[TemplateMemberAdded] = &templateDef{
		subjectTmpl: template.Must(template.New("member_added_subject").Parse("You've been added to {{.TeamName}}")),
		bodyTmpl:    template.Must(template.New("member_added").Parse(memberAddedTemplate)),
	}

	e.templates[TemplateRoleChanged] = &templateDef{
		subjectTmpl: template.Must(template.New("role_changed_subject").Parse("Your role in {{.TeamName}} has changed")),
		bodyTmpl:    template.Must(template.New("role_changed").Parse(roleChangedTemplate)),
	}

	e.templates[TemplateMemberRemoved] = &templateDef{
		subjectTmpl: template.Must(template.New("member_removed_subject").Parse("You've been removed from {{.TeamName}}")),
		bodyTmpl:    template.Must(template.New("member_removed").Parse(memberRemovedTemplate)),
	}
}

const memberAddedTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Welcome to {{.TeamName}}</h2>
  <p>Hi {{.UserName}},</p>
  <p>{{if .AddedBy}}{{.AddedBy}} added you{{else}}You have been added{{end}} to the team <strong>{{.TeamName}}</strong> as <strong>{{.Role}}</strong>.</p>
  {{if .TeamURL}}<p><a href="{{.TeamURL}}" style="background-color: #2563eb; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 4px;">View team</a></p>{{end}}
  <p style="color: #666; font-size: 12px;">— {{.AppName}}</p>
</body>
</html>
`

const roleChangedTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>Your role has changed</h2>
  <p>Hi {{.UserName}},</p>
  <p>Your role in <strong>{{.TeamName}}</strong> changed from <strong>{{.OldRole}}</strong> to <strong>{{.NewRole}}</strong>{{if .ChangedBy}} ({{.ChangedBy}}){{end}}.</p>
  {{if .TeamURL}}<p><a href="{{.TeamURL}}" style="background-color: #2563eb; color: #fff; padding: 10px 20px; text-decoration: none; border-radius: 4px;">View team</a></p>{{end}}
  <p style="color: #666; font-size: 12px;">— {{.AppName}}</p>
</body>
</html>
`

const memberRemovedTemplate = `
<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>You've been removed from {{.TeamName}}</h2>
  <p>Hi {{.UserName}},</p>
  <p>{{if .RemovedBy}}{{.RemovedBy}} removed you{{else}}You have been removed{{end}} from the team <strong>{{.TeamName}}</strong>.</p>
  <p style="color: #666; font-size: 12px;">— {{.AppName}}</p>
</body>
</html>
`
