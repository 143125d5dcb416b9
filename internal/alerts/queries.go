package alerts

import "github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"

// Catalog holds the selectable alert fields. dataSources is accepted but
// kept out of the defaults because the templates place it separately.
var Catalog = graphql.NewCatalog(
	[]string{
		"id",
		"externalId",
		"severity",
		"status",
		"name",
		"description",
		"detectedAt",
		"firstSeenAt",
		"lastSeenAt",
		"analystVerdict",
		"classification",
		"confidenceLevel",
		"detectionSource { product vendor }",
		"asset { id name type }",
		"assignee { userId email fullName }",
		"noteExists",
		"result",
		"storylineId",
		"ticketId",
	},
	[]string{dataSourcesField},
	nil,
)

const dataSourcesField = "dataSources"

var getAlertQuery = graphql.NewTemplate("GetAlert", `
query GetAlert($alertId: ID!) {
    alert(id: $alertId) {
        id
        externalId
        severity
        status
        name
        description
        detectedAt
        firstSeenAt
        lastSeenAt
        analystVerdict
        classification
        confidenceLevel
        ${data_sources_field}
        detectionSource {
            product
            vendor
        }
        asset {
            id
            name
            type
        }
        assignee {
            userId
            email
            fullName
        }
        noteExists
        result
        storylineId
        ticketId
    }
}
`)

var listAlertsQuery = graphql.NewTemplate("ListAlerts", `
query ListAlerts($first: Int!, $after: String${view_type_param}) {
    alerts(first: $first, after: $after${view_type_arg}) {
        edges {
            node {
${node_fields}
                ${data_sources_field}
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

var searchAlertsQuery = graphql.NewTemplate("SearchAlerts", `
query SearchAlerts($filters: [FilterInput!], $first: Int!, $after: String${view_type_param}) {
    alerts(filters: $filters, first: $first, after: $after${view_type_arg}) {
        edges {
            node {
${node_fields}
                ${data_sources_field}
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

var alertNotesQuery = graphql.NewTemplate("GetAlertNotes", `
query GetAlertNotes($alertId: ID!) {
    alertNotes(alertId: $alertId) {
        data {
            id
            text
            createdAt
            author {
                userId
                email
            }
            alertId
        }
    }
}
`)

var alertHistoryQuery = graphql.NewTemplate("GetAlertHistory", `
query GetAlertHistory($alertId: ID!, $first: Int!, $after: String) {
    alertHistory(alertId: $alertId, first: $first, after: $after) {
        edges {
            node {
                createdAt
                eventText
                eventType
                reportUrl
                historyItemCreator {
                    __typename
                    ... on UserHistoryItemCreator {
                        userId
                        userType
                    }
                }
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
