// Package domain provides core business rules for the leads bounded context.
package domain

import "strings"

// Status is the lifecycle state of a lead.
type Status string

const (
	StatusNew         Status = "new"
	StatusAssigned    Status = "assigned"
	StatusContacted   Status = "contacted"
	StatusQuoted      Status = "quoted"
	StatusConverted   Status = "converted"
	StatusDead        Status = "dead"
	StatusUnqualified Status = "unqualified"
)

var knownStatuses = map[Status]bool{
	StatusNew:         true,
	StatusAssigned:    true,
	StatusContacted:   true,
	StatusQuoted:      true,
	StatusConverted:   true,
	StatusDead:        true,
	StatusUnqualified: true,
}

// terminalStatuses end the scoring lifecycle. Admins may still edit them.
var terminalStatuses = map[Status]bool{
	StatusConverted:   true,
	StatusDead:        true,
	StatusUnqualified: true,
}

// ParseStatus resolves raw input to a known Status.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !knownStatuses[s] {
		return "", false
	}
	return s, true
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	return knownStatuses[s]
}

// IsTerminal returns true for converted, dead and unqualified.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// MarksContact returns true for statuses that stamp last_contacted_at.
func (s Status) MarksContact() bool {
	return s == StatusContacted || s == StatusQuoted || s == StatusConverted
}

// AwaitingResponse returns true while the contractor has not yet acted on the lead.
// The first contractor transition out of these states records response time.
func (s Status) AwaitingResponse() bool {
	return s == StatusNew || s == StatusAssigned
}

// AllStatuses lists every status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusNew, StatusAssigned, StatusContacted, StatusQuoted,
		StatusConverted, StatusDead, StatusUnqualified,
	}
}
