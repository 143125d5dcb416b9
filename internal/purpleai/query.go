package purpleai

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/robemmerson/s1-purple-mcp-sub002/internal/graphql"
)

// launchQuery carries every console and user detail inline. Each ${...}
// slot receives a JSON-quoted string, which is also a valid GraphQL string
// literal, so no configured value can break out of its argument.
var launchQuery = graphql.NewTemplate("PurpleLaunchQuery", `
query PurpleLaunchQuery($input: String!) {
    purpleLaunchQuery(
        request: {
            isAsync: false
            contentType: NATURAL_LANGUAGE
            consoleDetails: {
                baseUrl: ${base_url}
                version: ${version}
            }
            conversation: { id: ${conversation_id}, messages: [], entitlements: null }
            inputContent: {
                userInput: $input
                displayedTimeRange: { start: ${start}, end: ${end} }
                viewSelector: EDR
                contentType: NATURAL_LANGUAGE
                userDetails: {
                    accountId: ${account_id}
                    teamToken: ${team_token}
                    emailAddress: ${email_address}
                    userAgent: ${user_agent}
                    buildDate: ${build_date}
                    buildHash: ${build_hash}
                }
            }
        }
    ) {
        result {
            message
            summary
            powerQuery {
                query
                timeRange {
                    start
                    end
                }
                viewSelector
            }
            starRule
            suggestedActions {
                payload
                label
                actionId
            }
            suggestedQuestions {
                powerQuery
                question
            }
            maskedMetadata
        }
        resultType
        status {
            state
            error {
                errorDetail
                errorType
                origin
            }
        }
        stepsCompleted
        token
    }
}
`)

// window is the displayed time range sent with every question.
const window = 24 * time.Hour

func (c *Client) renderQuery(conversationID string, now time.Time) (string, error) {
	end := now.UnixMilli()
	start := now.Add(-window).UnixMilli()
	return launchQuery.Render(map[string]string{
		"base_url":        quote(c.settings.ConsoleBaseURL),
		"version":         quote(c.settings.ConsoleVersion),
		"conversation_id": quote(conversationID),
		"start":           strconv.FormatInt(start, 10),
		"end":             strconv.FormatInt(end, 10),
		"account_id":      quote(c.settings.AccountID),
		"team_token":      quote(c.settings.TeamToken),
		"email_address":   quote(c.settings.EmailAddress),
		"user_agent":      quote(c.settings.UserAgent),
		"build_date":      quote(c.settings.BuildDate),
		"build_hash":      quote(c.settings.BuildHash),
	})
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
