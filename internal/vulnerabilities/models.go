package vulnerabilities

import "encoding/json"

// Severity of a vulnerability.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityUnknown  Severity = "UNKNOWN"
)

// Status is the remediation workflow state.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusInProgress  Status = "IN_PROGRESS"
	StatusOnHold      Status = "ON_HOLD"
	StatusResolved    Status = "RESOLVED"
	StatusRiskAcked   Status = "RISK_ACKED"
	StatusSuppressed  Status = "SUPPRESSED"
	StatusToBePatched Status = "TO_BE_PATCHED"
)

// AnalystVerdict is the analyst's classification of a finding.
type AnalystVerdict string

const (
	VerdictTruePositive  AnalystVerdict = "TRUE_POSITIVE"
	VerdictFalsePositive AnalystVerdict = "FALSE_POSITIVE"
)

// User is an assignee or note author.
type User struct {
	ID       *string `json:"id,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Deleted  *bool   `json:"deleted,omitempty"`
}

// Named is an account, site or group reference.
type Named struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// Scope locates a finding in the management hierarchy.
type Scope struct {
	Account *Named `json:"account,omitempty"`
	Site    *Named `json:"site,omitempty"`
	Group   *Named `json:"group,omitempty"`
}

type CloudInfo struct {
	AccountID    *string `json:"accountId,omitempty"`
	AccountName  *string `json:"accountName,omitempty"`
	ProviderName *string `json:"providerName,omitempty"`
	Region       *string `json:"region,omitempty"`
	ResourceID   *string `json:"resourceId,omitempty"`
	ResourceLink *string `json:"resourceLink,omitempty"`
}

type KubernetesInfo struct {
	Cluster   *string `json:"cluster,omitempty"`
	ClusterID *string `json:"clusterId,omitempty"`
	Namespace *string `json:"namespace,omitempty"`
}

// Asset is the affected asset.
type Asset struct {
	ID             string          `json:"id"`
	ExternalID     *string         `json:"externalId,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Type           *string         `json:"type,omitempty"`
	Category       *string         `json:"category,omitempty"`
	Subcategory    *string         `json:"subcategory,omitempty"`
	Domain         *string         `json:"domain,omitempty"`
	AgentUUID      *string         `json:"agentUuid,omitempty"`
	Privileged     *bool           `json:"privileged,omitempty"`
	Criticality    *string         `json:"criticality,omitempty"`
	OSType         *string         `json:"osType,omitempty"`
	CloudInfo      *CloudInfo      `json:"cloudInfo,omitempty"`
	KubernetesInfo *KubernetesInfo `json:"kubernetesInfo,omitempty"`
}

// Software is the vulnerable package.
type Software struct {
	Name       *string `json:"name,omitempty"`
	Version    *string `json:"version,omitempty"`
	FixVersion *string `json:"fixVersion,omitempty"`
	Type       *string `json:"type,omitempty"`
	Vendor     *string `json:"vendor,omitempty"`
}

type S1BaseValues struct {
	AttackVector       *string `json:"attackVector,omitempty"`
	AttackComplexity   *string `json:"attackComplexity,omitempty"`
	PrivilegesRequired *string `json:"privilegesRequired,omitempty"`
	UserInteractions   *string `json:"userInteractions,omitempty"`
	Scope              *string `json:"scope,omitempty"`
	Confidentiality    *string `json:"confidentiality,omitempty"`
	Integrity          *string `json:"integrity,omitempty"`
	Availability       *string `json:"availability,omitempty"`
}

type RiskIndicators struct {
	Severity *Severity `json:"severity,omitempty"`
	Values   []string  `json:"values,omitempty"`
}

type TimelineItem struct {
	Date *string `json:"date,omitempty"`
	Key  *string `json:"key,omitempty"`
}

// CVE carries the CVE record. The detail query fills the extended fields.
type CVE struct {
	ID                  string           `json:"id"`
	Description         *string          `json:"description,omitempty"`
	NVDBaseScore        *float64         `json:"nvdBaseScore,omitempty"`
	RiskScore           *float64         `json:"riskScore,omitempty"`
	Score               *float64         `json:"score,omitempty"`
	PublishedDate       *string          `json:"publishedDate,omitempty"`
	EPSSScore           *float64         `json:"epssScore,omitempty"`
	EPSSPercentile      *float64         `json:"epssPercentile,omitempty"`
	EPSSLastUpdatedDate *string          `json:"epssLastUpdatedDate,omitempty"`
	ExploitMaturity     *string          `json:"exploitMaturity,omitempty"`
	ExploitedInTheWild  *bool            `json:"exploitedInTheWild,omitempty"`
	KEVAvailable        *bool            `json:"kevAvailable,omitempty"`
	RemediationLevel    *string          `json:"remediationLevel,omitempty"`
	ReportConfidence    *string          `json:"reportConfidence,omitempty"`
	S1BaseValues        *S1BaseValues    `json:"s1BaseValues,omitempty"`
	RiskIndicators      []RiskIndicators `json:"riskIndicators,omitempty"`
	MitreReferenceURL   *string          `json:"mitreReferenceUrl,omitempty"`
	NVDReferenceURL     *string          `json:"nvdReferenceUrl,omitempty"`
	Timeline            []TimelineItem   `json:"timeline,omitempty"`
}

// FindingData holds scanner context as free-form JSON.
type FindingData struct {
	Context json.RawMessage `json:"context,omitempty"`
}

// Vulnerability is a vulnerability finding. List and search fill whatever
// fields were selected; GetVulnerability fills the detail fields as well.
type Vulnerability struct {
	ID                           string          `json:"id"`
	ExternalID                   *string         `json:"externalId,omitempty"`
	Name                         *string         `json:"name,omitempty"`
	Severity                     *Severity       `json:"severity,omitempty"`
	Status                       *Status         `json:"status,omitempty"`
	DetectedAt                   *string         `json:"detectedAt,omitempty"`
	LastSeenAt                   *string         `json:"lastSeenAt,omitempty"`
	UpdatedAt                    *string         `json:"updatedAt,omitempty"`
	Product                      *string         `json:"product,omitempty"`
	Vendor                       *string         `json:"vendor,omitempty"`
	Asset                        *Asset          `json:"asset,omitempty"`
	Scope                        *Scope          `json:"scope,omitempty"`
	ScopeLevel                   *string         `json:"scopeLevel,omitempty"`
	CVE                          *CVE            `json:"cve,omitempty"`
	Software                     *Software       `json:"software,omitempty"`
	FindingData                  *FindingData    `json:"findingData,omitempty"`
	PaidScope                    *bool           `json:"paidScope,omitempty"`
	RemediationInsightsAvailable *bool           `json:"remediationInsightsAvailable,omitempty"`
	SelfLink                     *string         `json:"selfLink,omitempty"`
	AnalystVerdict               *AnalystVerdict `json:"analystVerdict,omitempty"`
	Assignee                     *User           `json:"assignee,omitempty"`
	ExclusionPolicyID            *string         `json:"exclusionPolicyId,omitempty"`
}

// Note is an analyst note on a vulnerability.
type Note struct {
	ID              string  `json:"id"`
	VulnerabilityID string  `json:"vulnerabilityId"`
	Text            string  `json:"text"`
	Author          *User   `json:"author,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       *string `json:"updatedAt,omitempty"`
}

// HistoryEvent is one entry of a vulnerability's audit trail.
type HistoryEvent struct {
	EventType string `json:"eventType"`
	EventText string `json:"eventText"`
	CreatedAt string `json:"createdAt"`
}
