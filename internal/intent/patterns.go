package intent

import (
	"regexp"
	"strings"
)

// Capture terminators. stopTail ends a value at punctuation, at a keyword
// that starts another clause, or at end of input. scopedStop also ends it at
// a preposition introducing a container ("in", "for", ...). personStop adds
// "by"/"before", which introduce dates after a name, and titleStop only
// accepts the prepositions that rarely occur inside an issue title.
const (
	stopTail   = `\s*[,;!?]|\.(?:\s|$)|\s+(?:and\s+)?(?:assign(?:ed)?|due|with|priority|owner|owned)\b|$`
	stop       = `(?:` + stopTail + `)`
	scopedStop = `(?:\s+(?:in|for|under|on|to|of)\s|` + stopTail + `)`
	personStop = `(?:\s+(?:in|for|under|on|to|of|by|before)\s|` + stopTail + `)`
	titleStop  = `(?:\s+(?:in|for|under)\s|` + stopTail + `)`

	titleNoun = `(?:issue|bug|ticket)`
	dateExpr  = `(today|tonight|tomorrow|in\s+\d+\s+(?:days?|weeks?)|next\s+week|(?:next\s+|this\s+)?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|\d{4}-\d{2}-\d{2})`
)

func re(expr string) *regexp.Regexp { return regexp.MustCompile(`(?i)` + expr) }

func capture(expr string) Matcher { return Matcher{Pattern: re(expr), Group: 1} }

func fixed(expr, value string) Matcher { return Matcher{Pattern: re(expr), Value: value} }

// DefaultMatchers returns the slot strategies in evaluation order.
func DefaultMatchers() []SlotMatchers {
	return []SlotMatchers{
		{
			Slot: SlotIssueTitle,
			Matchers: []Matcher{
				capture(`\b` + titleNoun + `\s+(?:called\s+|named\s+|titled\s+)?"([^"]+)"`),
				capture(`\b` + titleNoun + `\s+(?:called|named|titled)\s+(.+?)` + titleStop),
				capture(`\b` + titleNoun + `\s*:\s*(.+?)` + titleStop),
				capture(`\b` + titleNoun + `\b.*?\b(?:called|named|titled)\s+"?(.+?)"?` + stop),
				capture(`\btitle\s*(?:is|:|=)\s*"?(.+?)"?` + stop),
			},
		},
		{
			Slot: SlotSubtask,
			Matchers: []Matcher{
				capture(`\bsub-?task\s+(?:called\s+|named\s+|titled\s+)?"([^"]+)"`),
				capture(`\bsub-?task\s*:\s*(.+?)` + scopedStop),
				capture(`\bsub-?task\s+(?:called|named|titled)\s+(.+?)` + scopedStop),
				capture(`\badd\s+(?:an?\s+|new\s+)*sub-?task\s+(.+?)` + scopedStop),
			},
		},
		{
			Slot: SlotMilestone,
			Matchers: []Matcher{
				capture(`\bmilestone\s*(?:is|:|=)\s*"?(.+?)"?` + stop),
				capture(`\b(?:to|in|under|for)\s+(?:the\s+)?milestone\s+"?(.+?)"?` + scopedStop),
				capture(`\b(?:to|in|under|for)\s+(?:the\s+)?"?([^",;]+?)"?\s+milestone\b`),
			},
		},
		{
			Slot: SlotProject,
			Matchers: []Matcher{
				capture(`\bproject\s*(?:is|:|=)\s*"?(.+?)"?` + stop),
				capture(`\b(?:in|for|under|on|to)\s+(?:the\s+)?project\s+"?(.+?)"?` + stop),
				capture(`\b` + titleNoun + `\s+(?:called|named|titled)\s+.+?\s+(?:in|for|under)\s+(?:the\s+)?"?(.+?)"?` + stop),
				capture(`\b` + titleNoun + `\s+(?:in|for|under)\s+(?:the\s+)?"?(.+?)"?\s+(?:called|named|titled)\b`),
				capture(`\b(?:in|for|under|on)\s+(?:the\s+)?"?([^",;]+?)"?\s+project\b`),
				capture(`\bmilestone\s+(?:in|of|for|under)\s+(?:the\s+)?"?(.+?)"?` + stop),
				capture(`\bmilestone\s+.+?\s+(?:in|of|for|under)\s+(?:the\s+)?"?(.+?)"?` + stop),
				capture(`\b(?:status|progress|updates?|issues)\s+(?:of|on|for|in)\s+(?:the\s+)?"?(.+?)"?` + stop),
				capture(`\bhow\s+(?:is|are)\s+(?:the\s+)?"?(.+?)"?\s+(?:going|doing|progressing|coming\s+along)\b`),
			},
		},
		{
			Slot: SlotAssignee,
			Matchers: []Matcher{
				capture(`\bassign(?:ed)?\s+(?:it\s+|this\s+|them\s+)?to\s+"?(.+?)"?` + personStop),
				capture(`\b(?:owner|assignee)\s*(?:is|:|=|should\s+be)\s*"?(.+?)"?` + personStop),
				capture(`\bowned\s+by\s+"?(.+?)"?` + personStop),
				capture(`\bfor\s+@([\w.-]+)`),
			},
		},
		{
			Slot: SlotDueDate,
			Matchers: []Matcher{
				capture(`\bdue(?:\s+date)?\s*(?:is|:|=|on|by)?\s*` + dateExpr + `\b`),
				capture(`\b(?:by|before|deadline\s*(?:is|:)?)\s*` + dateExpr + `\b`),
			},
			Normalize: func(v string) string { return strings.ToLower(v) },
		},
		{
			Slot: SlotPriority,
			Matchers: []Matcher{
				capture(`\bpriority\s*(?:is|:|=|of|to)?\s*(high|medium|low|urgent|critical|normal)\b`),
				capture(`\b(high|medium|low|urgent|critical)[\s-]+priority\b`),
				fixed(`\b(?:urgent|critical|asap)\b`, "high"),
			},
			Normalize: normalizePriorityWord,
		},
		{
			Slot: SlotQuery,
			Matchers: []Matcher{
				fixed(`\b(?:what(?:'s|\s+is)|show|check|give\s+me|get)\s+(?:me\s+)?(?:the\s+)?(?:current\s+)?(?:status|progress)\b`, QueryStatus),
				fixed(`\b(?:status|progress)\s+(?:of|on|for)\b`, QueryStatus),
				fixed(`\bhow\s+(?:is|are)\s+.+?\s+(?:going|doing|progressing|coming\s+along)\b`, QueryStatus),
				fixed(`\b(?:any|latest|recent|new)\s+updates?\b`, QueryUpdates),
				fixed(`\bupdates?\s+(?:on|for|in|from)\b`, QueryUpdates),
				fixed(`\bwhat(?:'s|\s+has)\s+(?:changed|happened)\b`, QueryUpdates),
				fixed(`\b(?:list|show|get|what\s+are)\s+(?:me\s+)?(?:the\s+|all\s+)?(?:open\s+)?issues\b`, QueryIssues),
				fixed(`\bissues\s+(?:in|for|on)\b`, QueryIssues),
			},
		},
	}
}

func normalizePriorityWord(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "urgent", "critical", "asap", "high":
		return "high"
	case "normal", "medium":
		return "medium"
	case "low":
		return "low"
	}
	return strings.ToLower(strings.TrimSpace(v))
}
