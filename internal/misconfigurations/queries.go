package misconfigurations

import "github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"

// Catalog holds the selectable misconfiguration fields.
var Catalog = graphql.NewCatalog(
	[]string{
		"id",
		"externalId",
		"name",
		"severity",
		"status",
		"detectedAt",
		"eventTime",
		"lastSeenAt",
		"environment",
		"product",
		"vendor",
		"asset { id externalId name type category subcategory privileged cloudInfo { accountId accountName providerName region } kubernetesInfo { cluster namespace } }",
		"scope { account { id name } site { id name } group { id name } }",
		"analystVerdict",
		"assignee { id email fullName }",
		"cnapp { policy { id version group } verifiedExploitable }",
		"complianceStandards",
		"dataClassificationCategories",
		"dataClassificationDataTypes",
		"enforcementAction",
		"evidence { fileName fileType iacFramework ipAddress port subdomain }",
		"exclusionPolicyId",
		"exploitId",
		"exposureReason",
		"findingType",
		"mitigable",
		"misconfigurationType",
		"mitreAttacks { techniqueId techniqueName techniqueUrl tacticName tacticUid }",
		"organization",
		"remediation { mitigable mitigationSteps }",
		"resourceUid",
		"admissionRequest { category resourceName resourceNamespace resourceType userName userUid userGroup }",
	},
	[]string{
		"description",
		"scopeLevel",
		"exposureId",
		"selfLink",
	},
	nil,
)

var getMisconfigurationQuery = graphql.NewTemplate("GetMisconfiguration", `
query GetMisconfiguration($id: ID!) {
    misconfiguration(id: $id) {
        id
        externalId
        name
        description
        severity
        status
        detectedAt
        eventTime
        lastSeenAt
        environment
        product
        vendor
        asset {
            id
            externalId
            name
            type
            category
            subcategory
            domain
            agentUuid
            privileged
            criticality
            osType
            cloudInfo {
                accountId
                accountName
                providerName
                region
                resourceId
                resourceLink
            }
            kubernetesInfo {
                cluster
                clusterId
                namespace
            }
        }
        scope {
            account { id name }
            site { id name }
            group { id name }
        }
        scopeLevel
        analystVerdict
        assignee {
            id
            email
            fullName
            deleted
        }
        cnapp {
            policy {
                id
                name
                description
                version
                group
            }
            verifiedExploitable
            autoRemediation
            haConnectionId
            haTemplateId
        }
        compliance {
            standards
            requirements
            complianceStandards { title url }
            complianceReferences { title url }
            status
        }
        remediation {
            mitigable
            mitigationSteps
            references { title url }
        }
        failedRules {
            name
            description
            severity
            impact
            compliance
            recommendedAction
            enforcementSettings
        }
        findingData {
            properties { name value }
            exposureReason
            context
        }
        mitreAttacks {
            techniqueId
            techniqueName
            techniqueUrl
            tacticName
            tacticUid
        }
        dataClassificationCategories
        dataClassificationDataTypes
        enforcementAction
        evidence {
            fileName
            fileType
            fileUrl
            iacFramework
            ipAddress
            port
            subdomain
            commitedBy
            secret { type hash valid }
        }
        exclusionPolicyId
        exploitId
        exposureId
        misconfigurationType
        organization
        resourceUid
        selfLink
        admissionRequest {
            category
            resourceName
            resourceNamespace
            resourceType
            userName
            userUid
            userGroup
        }
    }
}
`).MustRender(nil)

var listMisconfigurationsQuery = graphql.NewTemplate("ListMisconfigurations", `
query ListMisconfigurations($first: Int!, $after: String${view_type_param}) {
    misconfigurations(first: $first, after: $after${view_type_arg}) {
        edges {
            node {
${node_fields}
            }
            cursor
        }
        pageInfo {
            hasNextPage
            hasPreviousPage
            startCursor
            endCursor
        }
        totalCount
    }
}
`)

var searchMisconfigurationsQuery = graphql.NewTemplate("SearchMisconfigurations", `
query SearchMisconfigurations($filters: [FilterInput!], $first: Int!, $after: String${view_type_param}) {
    misconfigurations(filters: $filters, first: $first, after: $after${view_type_arg}) {
        edges {
            node {
${node_fields}
            }
            cursor
        }
        pageInfo {
            hasNextPage
            hasPreviousPage
            startCursor
            endCursor
        }
        totalCount
    }
}
`)

var misconfigurationNotesQuery = graphql.NewTemplate("GetMisconfigurationNotes", `
query GetMisconfigurationNotes($misconfigurationId: ID!, $first: Int, $after: String) {
    misconfigurationNotes(misconfigurationId: $misconfigurationId, first: $first, after: $after) {
        edges {
            node {
                id
                misconfigurationId
                text
                author {
                    id
                    email
                    fullName
                    deleted
                }
                createdAt
                updatedAt
            }
            cursor
        }
        pageInfo {
            hasNextPage
            hasPreviousPage
            startCursor
            endCursor
        }
        totalCount
    }
}
`).MustRender(nil)

var misconfigurationHistoryQuery = graphql.NewTemplate("GetMisconfigurationHistory", `
query GetMisconfigurationHistory($misconfigurationId: ID!, $first: Int!, $after: String) {
    misconfigurationHistory(misconfigurationId: $misconfigurationId, first: $first, after: $after) {
        edges {
            node {
                eventType
                eventText
                createdAt
            }
            cursor
        }
        pageInfo {
            hasNextPage
            hasPreviousPage
            startCursor
            endCursor
        }
        totalCount
    }
}
`).MustRender(nil)
