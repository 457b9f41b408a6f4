// Package alerts implements the rule evaluation engine and webhook delivery
// for trialdash. Rules are evaluated against every area/quarter bottleneck
// record after a dataset load; webhooks are delivered to Teams, Slack,
// PagerDuty, or generic HTTP targets.
package alerts
