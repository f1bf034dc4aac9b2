package summarize

import (
	"context"
	"fmt"

	"weeklysummary/internal"
	"weeklysummary/internal/aggregate"
)

// Offline returns fixed narratives that only vary by activity count. It needs
// no network and pairs with the canned sources.
type Offline struct{}

func (Offline) Summarize(_ context.Context, activities []internal.Activity, _, _ string) map[string]string {
	summaries := make(map[string]string)
	for _, g := range aggregate.GroupBySource(activities) {
		if tmpl, ok := offlineTexts[g.Key]; ok {
			summaries[g.Key] = fmt.Sprintf(tmpl, len(g.Activities))
		}
	}
	return summaries
}

var offlineTexts = map[string]string{
	"github": `This week's development work focused on three main areas: performance optimization, security improvements, and feature enhancements.

The team made significant progress on the backend infrastructure, implementing Redis caching for user profiles which resulted in a 40%% improvement in API response times. Several critical bugs were addressed, including an authentication issue that prevented users with special characters in their passwords from logging in, and a memory leak in the websocket handler that was affecting long-running connections.

On the feature development side, work continued on the email notification system with a pull request successfully merged, and the API response format standardization effort moved forward. The team also improved error messaging throughout the API to make them more user-friendly and actionable. Overall, %d activities were completed across multiple repositories, demonstrating good velocity and focus on both immediate fixes and longer-term improvements.`,

	"slack": `Team communications this week centered around technical architecture decisions, operational improvements, and cross-functional collaboration.

Key technical discussions included architecture proposals for the payment processing microservices, debates about caching strategies (Redis vs Memcached for session storage), and API design reviews. The engineering team shared important updates on performance optimization results and coordinated on database migration strategies. An incident response highlighted the team's operational maturity, with quick identification and resolution of a database connection pool issue that was affecting API response times.

The team maintained strong collaboration patterns through regular standups, code review discussions in the #pull-requests channel, and productive cross-functional sync with product on Q2 roadmap feasibility. With %d messages across multiple channels, the week showed healthy engagement across backend development, DevOps, and product alignment discussions.`,
}
