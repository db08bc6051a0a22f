package email

const (
	subjectLeadAssignedFmt  = "New %s lead in %s"
	subjectLeadConvertedFmt = "Lead converted by %s"
	subjectFeedbackAlertFmt = "Low satisfaction rating (%d/5)"
)
