package nlq

import "regexp"

// The classifier tables below are ordered: rules are evaluated top to bottom
// and the first match wins. The declaration order is a contract relied on by
// callers and tests; do not reorder.

type actionRule struct {
	action   Action
	patterns []*regexp.Regexp
}

var actionRules = []actionRule{
	{ActionSearch, []*regexp.Regexp{
		regexp.MustCompile(`(?i)show|find|get|list|display|what|which`),
		regexp.MustCompile(`(?i)search for|look for|give me`),
	}},
	{ActionCount, []*regexp.Regexp{
		regexp.MustCompile(`(?i)how many|count|number of|total`),
		regexp.MustCompile(`(?i)how much`),
	}},
	{ActionAggregate, []*regexp.Regexp{
		regexp.MustCompile(`(?i)summarize|summary|group by|breakdown`),
		regexp.MustCompile(`(?i)aggregate|top|most|least`),
	}},
	{ActionReport, []*regexp.Regexp{
		regexp.MustCompile(`(?i)report|generate report|create report`),
		regexp.MustCompile(`(?i)export|document`),
	}},
}

type entityRule struct {
	category string
	patterns []*regexp.Regexp
}

var entityRules = []entityRule{
	{"failed_login", []*regexp.Regexp{
		regexp.MustCompile(`(?i)failed login|login failure|authentication fail|unsuccessful login`),
		regexp.MustCompile(`(?i)failed auth|auth fail|bad password|invalid credentials`),
	}},
	{"successful_login", []*regexp.Regexp{
		regexp.MustCompile(`(?i)successful login|login success|authenticated|logged in successfully`),
	}},
	{"malware", []*regexp.Regexp{
		regexp.MustCompile(`(?i)malware|virus|trojan|ransomware|suspicious file`),
		regexp.MustCompile(`(?i)threat detected|malicious|infected`),
	}},
	{"network_connection", []*regexp.Regexp{
		regexp.MustCompile(`(?i)network connection|outbound connection|inbound connection`),
		regexp.MustCompile(`(?i)network traffic|connection attempt`),
	}},
	{"vpn", []*regexp.Regexp{
		regexp.MustCompile(`(?i)vpn|virtual private network|vpn connection|vpn login`),
		regexp.MustCompile(`(?i)remote access`),
	}},
	{"firewall", []*regexp.Regexp{
		regexp.MustCompile(`(?i)firewall|blocked|denied|dropped`),
		regexp.MustCompile(`(?i)firewall rule|firewall block`),
	}},
	{"user_activity", []*regexp.Regexp{
		regexp.MustCompile(`(?i)user activity|user action|user behavior`),
		regexp.MustCompile(`(?i)what did user|user events`),
	}},
	{"alerts", []*regexp.Regexp{
		regexp.MustCompile(`(?i)alert|security alert|triggered alert|alerted`),
	}},
	{"process", []*regexp.Regexp{
		regexp.MustCompile(`(?i)process|execution|program|command|executed`),
	}},
	{"file_operation", []*regexp.Regexp{
		regexp.MustCompile(`(?i)file created|file modified|file deleted|file access`),
		regexp.MustCompile(`(?i)file operation|file activity`),
	}},
}

type filterRule struct {
	name    string
	pattern *regexp.Regexp
}

// Filter patterns run against the original-case text so identifiers keep
// their casing. Each contributes its first capture group on match.
var filterRules = []filterRule{
	{"user", regexp.MustCompile(`(?i)(?:user|username|account|user name)[\s:]+([a-zA-Z0-9._-]+)`)},
	{"ip", regexp.MustCompile(`\b((?:\d{1,3}\.){3}\d{1,3})\b`)},
	{"hostname", regexp.MustCompile(`(?i)(?:host|hostname|computer)[\s:]+([a-zA-Z0-9._-]+)`)},
	{"source_ip", regexp.MustCompile(`(?i)(?:source|from|src)[\s:]+(?:ip[\s:]+)?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)},
	{"destination_ip", regexp.MustCompile(`(?i)(?:destination|dest|dst|to)[\s:]+(?:ip[\s:]+)?(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)},
	{"port", regexp.MustCompile(`(?i)(?:port|:)(\d{1,5})`)},
	{"severity", regexp.MustCompile(`(?i)(?:severity|priority)[\s:]+(\w+)`)},
	{"status", regexp.MustCompile(`(?i)(?:status)[\s:]+(\w+)`)},
}

var limitPattern = regexp.MustCompile(`(?i)(?:top|first|last|limit)\s+(\d+)`)

// Refinement channel patterns, used by ExtractRefinements only.
var (
	includePattern = regexp.MustCompile(`(?i)(?:only|just|include)\s+(.+)`)
	excludePattern = regexp.MustCompile(`(?i)(?:exclude|without|not)\s+(.+)`)
)

// refinementKeywords drive the IsRefinementQuery predicate.
var refinementKeywords = []string{
	"filter", "only", "exclude", "also", "and",
	"show more", "narrow", "focus on", "just",
}
