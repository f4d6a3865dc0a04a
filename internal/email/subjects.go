package email

const (
	subjectWelcome               = "Welcome to CRM System"
	subjectLogin                 = "Login Notification - CRM System"
	subjectPasswordReset         = "Password Reset Request - CRM System"
	subjectPasswordResetComplete = "Password Reset Successful - CRM System"
	subjectLeadCreatedFmt        = "New Lead Assigned: %s"
	subjectLeadAssignedFmt       = "Lead Assigned to You: %s"
	subjectLeadStatusFmt         = "Lead Status Updated: %s"
	subjectActivityFmt           = "New %s on Lead: %s"
)
