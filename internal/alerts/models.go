package alerts

import (
	"fmt"
	"strings"
)

// Severity of an alert.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityInfo     Severity = "INFO"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Status of an alert.
type Status string

const (
	StatusNew           Status = "NEW"
	StatusInProgress    Status = "IN_PROGRESS"
	StatusResolved      Status = "RESOLVED"
	StatusFalsePositive Status = "FALSE_POSITIVE"
)

// AnalystVerdict is the analyst's classification of an alert.
type AnalystVerdict string

const (
	VerdictFalsePositiveBenign                  AnalystVerdict = "FALSE_POSITIVE_BENIGN"
	VerdictFalsePositiveBenignButSuspicious     AnalystVerdict = "FALSE_POSITIVE_BENIGN_BUT_SUSPICIOUS"
	VerdictFalsePositiveSystemError             AnalystVerdict = "FALSE_POSITIVE_SYSTEM_ERROR"
	VerdictFalsePositiveUndefined               AnalystVerdict = "FALSE_POSITIVE_UNDEFINED"
	VerdictFalsePositiveUserError               AnalystVerdict = "FALSE_POSITIVE_USER_ERROR"
	VerdictTruePositiveAdvancedPersistentThreat AnalystVerdict = "TRUE_POSITIVE_ADVANCED_PERSISTENT_THREAT"
	VerdictTruePositiveBenign                   AnalystVerdict = "TRUE_POSITIVE_BENIGN"
	VerdictTruePositiveBenignButSuspicious      AnalystVerdict = "TRUE_POSITIVE_BENIGN_BUT_SUSPICIOUS"
	VerdictTruePositiveDataExfiltration         AnalystVerdict = "TRUE_POSITIVE_DATA_EXFILTRATION"
	VerdictTruePositiveDenialOfService          AnalystVerdict = "TRUE_POSITIVE_DENIAL_OF_SERVICE"
	VerdictTruePositiveExploitationTools        AnalystVerdict = "TRUE_POSITIVE_EXPLOITATION_TOOLS"
	VerdictTruePositiveInsiderThreat            AnalystVerdict = "TRUE_POSITIVE_INSIDER_THREAT"
	VerdictTruePositiveMalware                  AnalystVerdict = "TRUE_POSITIVE_MALWARE"
	VerdictTruePositivePhishingAttack           AnalystVerdict = "TRUE_POSITIVE_PHISHING_ATTACK"
	VerdictTruePositivePolicyViolation          AnalystVerdict = "TRUE_POSITIVE_POLICY_VIOLATION"
	VerdictTruePositivePUAAdware                AnalystVerdict = "TRUE_POSITIVE_PUA_ADWARE"
	VerdictTruePositiveRansomware               AnalystVerdict = "TRUE_POSITIVE_RANSOMWARE"
	VerdictTruePositiveUnauthorizedAccess       AnalystVerdict = "TRUE_POSITIVE_UNAUTHORIZED_ACCESS"
	VerdictTruePositiveUndefined                AnalystVerdict = "TRUE_POSITIVE_UNDEFINED"
	VerdictUndefined                            AnalystVerdict = "UNDEFINED"
)

// ViewType scopes list and search results by assignment.
type ViewType string

const (
	ViewAll          ViewType = "ALL"
	ViewAssignedToMe ViewType = "ASSIGNED_TO_ME"
	ViewUnassigned   ViewType = "UNASSIGNED"
	ViewMyTeam       ViewType = "MY_TEAM"
)

// ViewTypes lists every accepted view type.
var ViewTypes = []ViewType{ViewAll, ViewAssignedToMe, ViewUnassigned, ViewMyTeam}

// ParseViewType validates s. An empty string means ViewAll.
func ParseViewType(s string) (ViewType, error) {
	if s == "" {
		return ViewAll, nil
	}
	for _, vt := range ViewTypes {
		if string(vt) == s {
			return vt, nil
		}
	}
	names := make([]string, len(ViewTypes))
	for i, vt := range ViewTypes {
		names[i] = string(vt)
	}
	return "", fmt.Errorf("view_type must be one of: %s", strings.Join(names, ", "))
}

// DetectionSource names the product that raised an alert.
type DetectionSource struct {
	Product *string `json:"product,omitempty"`
	Vendor  *string `json:"vendor,omitempty"`
}

// Asset is the asset an alert fired on.
type Asset struct {
	ID   string  `json:"id"`
	Name *string `json:"name,omitempty"`
	Type *string `json:"type,omitempty"`
}

// User is an assignee or note author.
type User struct {
	UserID   *string `json:"userId,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
}

// Alert is a unified alert. Every field except ID is optional because
// callers choose which fields to fetch.
type Alert struct {
	ID              string           `json:"id"`
	ExternalID      *string          `json:"externalId,omitempty"`
	Severity        *Severity        `json:"severity,omitempty"`
	Status          *Status          `json:"status,omitempty"`
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	DetectedAt      *string          `json:"detectedAt,omitempty"`
	FirstSeenAt     *string          `json:"firstSeenAt,omitempty"`
	LastSeenAt      *string          `json:"lastSeenAt,omitempty"`
	AnalystVerdict  *AnalystVerdict  `json:"analystVerdict,omitempty"`
	Classification  *string          `json:"classification,omitempty"`
	ConfidenceLevel *string          `json:"confidenceLevel,omitempty"`
	DataSources     []string         `json:"dataSources,omitempty"`
	DetectionSource *DetectionSource `json:"detectionSource,omitempty"`
	Asset           *Asset           `json:"asset,omitempty"`
	Assignee        *User            `json:"assignee,omitempty"`
	NoteExists      *bool            `json:"noteExists,omitempty"`
	Result          *string          `json:"result,omitempty"`
	StorylineID     *string          `json:"storylineId,omitempty"`
	TicketID        *string          `json:"ticketId,omitempty"`
}

// Note is an analyst note attached to an alert.
type Note struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
	Author    *User  `json:"author,omitempty"`
	AlertID   string `json:"alertId"`
}

// Notes is the alertNotes payload.
type Notes struct {
	Data []Note `json:"data"`
}

// HistoryCreator identifies the user behind a history event.
type HistoryCreator struct {
	Typename *string `json:"__typename,omitempty"`
	UserID   *string `json:"userId,omitempty"`
	UserType *string `json:"userType,omitempty"`
}

// HistoryEvent is one entry of an alert's audit trail.
type HistoryEvent struct {
	CreatedAt string          `json:"createdAt"`
	EventText string          `json:"eventText"`
	EventType string          `json:"eventType"`
	ReportURL *string         `json:"reportUrl,omitempty"`
	Creator   *HistoryCreator `json:"historyItemCreator,omitempty"`
}

const userCreator = "UserHistoryItemCreator"

// normalizeCreator drops creators that carry no user data. System events
// come back as an empty object, a bare __typename, or a different union
// member.
func (e *HistoryEvent) normalizeCreator() {
	c := e.Creator
	if c == nil {
		return
	}
	if c.UserID == nil && c.UserType == nil {
		e.Creator = nil
		return
	}
	if c.Typename != nil && *c.Typename != userCreator {
		e.Creator = nil
	}
}
