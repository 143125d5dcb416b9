package misconfigurations

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity of a misconfiguration.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
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

type AnalystVerdict string

const (
	VerdictTruePositive  AnalystVerdict = "TRUE_POSITIVE"
	VerdictFalsePositive AnalystVerdict = "FALSE_POSITIVE"
)

// EnforcementAction is what the admission controller did.
type EnforcementAction string

const (
	EnforcementDetect           EnforcementAction = "DETECT"
	EnforcementDetectAndProtect EnforcementAction = "DETECT_AND_PROTECT"
)

// ViewType narrows list and search results to one finding source.
type ViewType string

const (
	ViewAll                  ViewType = "ALL"
	ViewCloud                ViewType = "CLOUD"
	ViewKubernetes           ViewType = "KUBERNETES"
	ViewIdentity             ViewType = "IDENTITY"
	ViewInfrastructureAsCode ViewType = "INFRASTRUCTURE_AS_CODE"
	ViewAdmissionController  ViewType = "ADMISSION_CONTROLLER"
	ViewOffensiveSecurity    ViewType = "OFFENSIVE_SECURITY"
	ViewSecretScanning       ViewType = "SECRET_SCANNING"
)

// ViewTypes lists every accepted view type.
var ViewTypes = []ViewType{
	ViewAll, ViewCloud, ViewKubernetes, ViewIdentity,
	ViewInfrastructureAsCode, ViewAdmissionController, ViewOffensiveSecurity, ViewSecretScanning,
}

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

type User struct {
	ID       *string `json:"id,omitempty"`
	Email    *string `json:"email,omitempty"`
	FullName *string `json:"fullName,omitempty"`
	Deleted  *bool   `json:"deleted,omitempty"`
}

type Named struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

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

type Policy struct {
	ID          *string `json:"id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Version     *string `json:"version,omitempty"`
	Group       *string `json:"group,omitempty"`
}

// CNAPP is the cloud-native posture block of a finding.
type CNAPP struct {
	Policy              *Policy `json:"policy,omitempty"`
	VerifiedExploitable *bool   `json:"verifiedExploitable,omitempty"`
	AutoRemediation     *bool   `json:"autoRemediation,omitempty"`
	HAConnectionID      *string `json:"haConnectionId,omitempty"`
	HATemplateID        *string `json:"haTemplateId,omitempty"`
}

type Secret struct {
	Type  *string `json:"type,omitempty"`
	Hash  *string `json:"hash,omitempty"`
	Valid *bool   `json:"valid,omitempty"`
}

// Evidence points at what triggered the finding.
type Evidence struct {
	FileName     *string `json:"fileName,omitempty"`
	FileType     *string `json:"fileType,omitempty"`
	FileURL      *string `json:"fileUrl,omitempty"`
	IaCFramework *string `json:"iacFramework,omitempty"`
	IPAddress    *string `json:"ipAddress,omitempty"`
	Port         *int    `json:"port,omitempty"`
	Subdomain    *string `json:"subdomain,omitempty"`
	CommitedBy   *string `json:"commitedBy,omitempty"`
	Secret       *Secret `json:"secret,omitempty"`
}

type AdmissionRequest struct {
	Category          *string `json:"category,omitempty"`
	ResourceName      *string `json:"resourceName,omitempty"`
	ResourceNamespace *string `json:"resourceNamespace,omitempty"`
	ResourceType      *string `json:"resourceType,omitempty"`
	UserName          *string `json:"userName,omitempty"`
	UserUID           *string `json:"userUid,omitempty"`
	UserGroup         *string `json:"userGroup,omitempty"`
}

type MitreAttack struct {
	TechniqueID   *string `json:"techniqueId,omitempty"`
	TechniqueName *string `json:"techniqueName,omitempty"`
	TechniqueURL  *string `json:"techniqueUrl,omitempty"`
	TacticName    *string `json:"tacticName,omitempty"`
	TacticUID     *string `json:"tacticUid,omitempty"`
}

type Article struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Compliance struct {
	Standards            []string  `json:"standards,omitempty"`
	Requirements         []string  `json:"requirements,omitempty"`
	ComplianceStandards  []Article `json:"complianceStandards,omitempty"`
	ComplianceReferences []Article `json:"complianceReferences,omitempty"`
	Status               *string   `json:"status,omitempty"`
}

type Remediation struct {
	Mitigable       *bool     `json:"mitigable,omitempty"`
	MitigationSteps *string   `json:"mitigationSteps,omitempty"`
	References      []Article `json:"references,omitempty"`
}

type FailedRule struct {
	Name                *string            `json:"name,omitempty"`
	Description         *string            `json:"description,omitempty"`
	Severity            *Severity          `json:"severity,omitempty"`
	Impact              *string            `json:"impact,omitempty"`
	Compliance          []string           `json:"compliance,omitempty"`
	RecommendedAction   *string            `json:"recommendedAction,omitempty"`
	EnforcementSettings *EnforcementAction `json:"enforcementSettings,omitempty"`
}

type Property struct {
	Name  *string `json:"name,omitempty"`
	Value *string `json:"value,omitempty"`
}

type FindingData struct {
	Properties     []Property      `json:"properties,omitempty"`
	ExposureReason *string         `json:"exposureReason,omitempty"`
	Context        json.RawMessage `json:"context,omitempty"`
}

// Misconfiguration is a posture finding. List and search fill whatever
// fields were selected; GetMisconfiguration fills the detail fields too.
type Misconfiguration struct {
	ID                           string             `json:"id"`
	ExternalID                   *string            `json:"externalId,omitempty"`
	Name                         *string            `json:"name,omitempty"`
	Description                  *string            `json:"description,omitempty"`
	Severity                     *Severity          `json:"severity,omitempty"`
	Status                       *Status            `json:"status,omitempty"`
	DetectedAt                   *string            `json:"detectedAt,omitempty"`
	EventTime                    *string            `json:"eventTime,omitempty"`
	LastSeenAt                   *string            `json:"lastSeenAt,omitempty"`
	Environment                  *string            `json:"environment,omitempty"`
	Product                      *string            `json:"product,omitempty"`
	Vendor                       *string            `json:"vendor,omitempty"`
	Asset                        *Asset             `json:"asset,omitempty"`
	Scope                        *Scope             `json:"scope,omitempty"`
	ScopeLevel                   *string            `json:"scopeLevel,omitempty"`
	AnalystVerdict               *AnalystVerdict    `json:"analystVerdict,omitempty"`
	Assignee                     *User              `json:"assignee,omitempty"`
	CNAPP                        *CNAPP             `json:"cnapp,omitempty"`
	Compliance                   *Compliance        `json:"compliance,omitempty"`
	ComplianceStandards          []string           `json:"complianceStandards,omitempty"`
	DataClassificationCategories []string           `json:"dataClassificationCategories,omitempty"`
	DataClassificationDataTypes  []string           `json:"dataClassificationDataTypes,omitempty"`
	EnforcementAction            *EnforcementAction `json:"enforcementAction,omitempty"`
	Evidence                     *Evidence          `json:"evidence,omitempty"`
	ExclusionPolicyID            *string            `json:"exclusionPolicyId,omitempty"`
	ExploitID                    *string            `json:"exploitId,omitempty"`
	ExposureID                   *string            `json:"exposureId,omitempty"`
	ExposureReason               *string            `json:"exposureReason,omitempty"`
	FailedRules                  []FailedRule       `json:"failedRules,omitempty"`
	FindingData                  *FindingData       `json:"findingData,omitempty"`
	FindingType                  *string            `json:"findingType,omitempty"`
	Mitigable                    *bool              `json:"mitigable,omitempty"`
	MisconfigurationType         *string            `json:"misconfigurationType,omitempty"`
	MitreAttacks                 []MitreAttack      `json:"mitreAttacks,omitempty"`
	Organization                 *string            `json:"organization,omitempty"`
	Remediation                  *Remediation       `json:"remediation,omitempty"`
	ResourceUID                  *string            `json:"resourceUid,omitempty"`
	SelfLink                     *string            `json:"selfLink,omitempty"`
	AdmissionRequest             *AdmissionRequest  `json:"admissionRequest,omitempty"`
}

type Note struct {
	ID                 string  `json:"id"`
	MisconfigurationID string  `json:"misconfigurationId"`
	Text               string  `json:"text"`
	Author             *User   `json:"author,omitempty"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          *string `json:"updatedAt,omitempty"`
}

type HistoryEvent struct {
	EventType string `json:"eventType"`
	EventText string `json:"eventText"`
	CreatedAt string `json:"createdAt"`
}
