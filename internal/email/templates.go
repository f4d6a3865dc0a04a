package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type accountEmailData struct {
	baseEmailData
	Name      string
	Email     string
	Role      string
	LoginTime string
	ExpiresIn string
}

type leadAssignedEmailData struct {
	baseEmailData
	Intro     string
	LeadName  string
	LeadEmail string
	Status    string
	ActorName string
}

type leadStatusEmailData struct {
	baseEmailData
	LeadName  string
	OldStatus string
	NewStatus string
	ActorName string
}

type activityEmailData struct {
	baseEmailData
	ActorName   string
	TypeLower   string
	LeadName    string
	Title       string
	Description string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func render(to, subject, text, name string, data any) (Message, error) {
	html, err := renderEmailTemplate(name, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html}, nil
}

// WelcomeEmail greets a newly created account.
func WelcomeEmail(to, name, role string) (Message, error) {
	text := fmt.Sprintf("Welcome %s! Your account has been successfully created with role: %s.", name, role)
	return render(to, subjectWelcome, text, "welcome.html", accountEmailData{
		baseEmailData: baseEmailData{Title: subjectWelcome, Heading: "Welcome to CRM System!"},
		Name:          name,
		Email:         to,
		Role:          role,
	})
}

// LoginEmail notifies a user of a successful login at the given time.
func LoginEmail(to, name, role string, at time.Time) (Message, error) {
	when := at.UTC().Format("Jan 2, 2006 15:04:05 MST")
	text := fmt.Sprintf("Hello %s, you have successfully logged into the CRM System at %s (role: %s).", name, when, role)
	return render(to, subjectLogin, text, "login.html", accountEmailData{
		baseEmailData: baseEmailData{Title: subjectLogin, Heading: "Login Notification"},
		Name:          name,
		Email:         to,
		Role:          role,
		LoginTime:     when,
	})
}

// PasswordResetEmail carries the reset link.
func PasswordResetEmail(to, name, resetURL string, ttl time.Duration) (Message, error) {
	expiresIn := humanDuration(ttl)
	text := fmt.Sprintf("You requested a password reset. Click the link below to reset your password:\n\n%s\n\nThis link will expire in %s.\n\nIf you did not request this, please ignore this email.", resetURL, expiresIn)
	return render(to, subjectPasswordReset, text, "password_reset.html", accountEmailData{
		baseEmailData: baseEmailData{Title: subjectPasswordReset, Heading: "Password Reset Request", CTALabel: "Reset Password", CTAURL: resetURL},
		Name:          name,
		ExpiresIn:     expiresIn,
	})
}

func PasswordResetSuccessEmail(to, name string) (Message, error) {
	text := "Your password has been successfully reset. If you did not make this change, please contact support immediately."
	return render(to, subjectPasswordResetComplete, text, "password_reset_success.html", accountEmailData{
		baseEmailData: baseEmailData{Title: subjectPasswordResetComplete, Heading: "Password Reset Successful"},
		Name:          name,
	})
}

// LeadCreatedEmail tells the assignee about a new lead.
func LeadCreatedEmail(to, leadName, leadEmail, status, actorName string) (Message, error) {
	subject := fmt.Sprintf(subjectLeadCreatedFmt, leadName)
	text := fmt.Sprintf("A new lead %q has been assigned to you by %s.", leadName, actorName)
	return render(to, subject, text, "lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: "New Lead Assigned"},
		Intro:         "A new lead has been assigned to you:",
		LeadName:      leadName,
		LeadEmail:     leadEmail,
		Status:        status,
		ActorName:     actorName,
	})
}

// LeadReassignedEmail tells the new assignee about an existing lead.
func LeadReassignedEmail(to, leadName, leadEmail, status, actorName string) (Message, error) {
	subject := fmt.Sprintf(subjectLeadAssignedFmt, leadName)
	text := fmt.Sprintf("Lead %q has been assigned to you by %s.", leadName, actorName)
	return render(to, subject, text, "lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: "Lead Assigned to You"},
		Intro:         "The following lead has been assigned to you:",
		LeadName:      leadName,
		LeadEmail:     leadEmail,
		Status:        status,
		ActorName:     actorName,
	})
}

func LeadStatusEmail(to, leadName, oldStatus, newStatus, actorName string) (Message, error) {
	subject := fmt.Sprintf(subjectLeadStatusFmt, leadName)
	text := fmt.Sprintf("The status of lead %q has been changed from %q to %q by %s.", leadName, oldStatus, newStatus, actorName)
	return render(to, subject, text, "lead_status.html", leadStatusEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: "Lead Status Updated"},
		LeadName:      leadName,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		ActorName:     actorName,
	})
}

// ActivityEmail announces a notable activity on a lead.
func ActivityEmail(to, activityType, title, description, leadName, actorName string) (Message, error) {
	subject := fmt.Sprintf(subjectActivityFmt, activityType, leadName)
	typeLower := strings.ToLower(activityType)
	text := fmt.Sprintf("%s added a %s: %s", actorName, typeLower, title)
	return render(to, subject, text, "activity.html", activityEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: fmt.Sprintf("New %s", activityType)},
		ActorName:     actorName,
		TypeLower:     typeLower,
		LeadName:      leadName,
		Title:         title,
		Description:   description,
	})
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		d = time.Hour
	}
	if d%time.Hour == 0 {
		hours := int(d / time.Hour)
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d minutes", int(d/time.Minute))
}
