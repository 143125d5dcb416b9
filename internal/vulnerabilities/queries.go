package vulnerabilities

import "github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"

const (
	assetFragment    = "asset { id externalId name type category subcategory privileged cloudInfo { accountId accountName providerName region } kubernetesInfo { cluster namespace } }"
	scopeFragment    = "scope { account { id name } site { id name } group { id name } }"
	cveFragment      = "cve { id nvdBaseScore riskScore publishedDate epssScore exploitMaturity exploitedInTheWild }"
	softwareFragment = "software { name version fixVersion type vendor }"
)

// Catalog holds the selectable vulnerability fields.
var Catalog = graphql.NewCatalog(
	[]string{
		"id",
		"name",
		"severity",
		"status",
		"detectedAt",
		"lastSeenAt",
		"product",
		"vendor",
		assetFragment,
		scopeFragment,
		cveFragment,
		softwareFragment,
		"analystVerdict",
		"assignee { id email fullName }",
		"exclusionPolicyId",
	},
	[]string{
		"externalId",
		"updatedAt",
		"scopeLevel",
		"paidScope",
		"remediationInsightsAvailable",
		"selfLink",
		"findingData { context }",
	},
	nil,
)

var getVulnerabilityQuery = graphql.NewTemplate("GetVulnerability", `
query GetVulnerability($id: ID!) {
    vulnerability(id: $id) {
        id
        externalId
        name
        severity
        status
        detectedAt
        lastSeenAt
        updatedAt
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
        cve {
            id
            description
            nvdBaseScore
            riskScore
            score
            publishedDate
            epssScore
            epssPercentile
            epssLastUpdatedDate
            exploitMaturity
            exploitedInTheWild
            kevAvailable
            remediationLevel
            reportConfidence
            s1BaseValues {
                attackVector
                attackComplexity
                privilegesRequired
                userInteractions
                scope
                confidentiality
                integrity
                availability
            }
            riskIndicators {
                severity
                values
            }
            mitreReferenceUrl
            nvdReferenceUrl
            timeline {
                date
                key
            }
        }
        software {
            name
            version
            fixVersion
            type
            vendor
        }
        findingData {
            context
        }
        paidScope
        remediationInsightsAvailable
        selfLink
        analystVerdict
        assignee {
            id
            email
            fullName
            deleted
        }
        exclusionPolicyId
    }
}
`).MustRender(nil)

var listVulnerabilitiesQuery = graphql.NewTemplate("ListVulnerabilities", `
query ListVulnerabilities($first: Int!, $after: String) {
    vulnerabilities(first: $first, after: $after) {
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

var searchVulnerabilitiesQuery = graphql.NewTemplate("SearchVulnerabilities", `
query SearchVulnerabilities($filters: [FilterInput!], $first: Int!, $after: String) {
    vulnerabilities(filters: $filters, first: $first, after: $after) {
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

var vulnerabilityNotesQuery = graphql.NewTemplate("GetVulnerabilityNotes", `
query GetVulnerabilityNotes($vulnerabilityId: ID!, $first: Int, $after: String) {
    vulnerabilityNotes(vulnerabilityId: $vulnerabilityId, first: $first, after: $after) {
        edges {
            node {
                id
                vulnerabilityId
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

var vulnerabilityHistoryQuery = graphql.NewTemplate("GetVulnerabilityHistory", `
query GetVulnerabilityHistory($vulnerabilityId: ID!, $first: Int!, $after: String) {
    vulnerabilityHistory(vulnerabilityId: $vulnerabilityId, first: $first, after: $after) {
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
