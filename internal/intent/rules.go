package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// The deterministic tier: an ordered list of (matcher, builder) pairs
// evaluated against the lowercased message. First match wins, and the
// order encodes the documented priority: create > list > complete >
// delete > update > schedule > analyze > suggest. Nothing matching is
// general. The tier must handle the assistant's own canonical example
// phrases without any model.

var (
	createPattern   = regexp.MustCompile(`\b(create|add|make|remind me)\b`)
	listPattern     = regexp.MustCompile(`\b(list|show|display|view)\b|\bwhat('s| is| are)? (on )?my (list|tasks)\b`)
	completePattern = regexp.MustCompile(`\b(complete|completed|done|finish|finished|mark)\b`)
	deletePattern   = regexp.MustCompile(`\b(delete|remove|cancel|drop)\b`)
	updatePattern   = regexp.MustCompile(`\b(update|change|modify|edit|rename|set)\b`)
	schedulePattern = regexp.MustCompile(`\b(schedule|plan|prioritize|organi[sz]e)\b|what should i (do|work on)`)
	analyzePattern  = regexp.MustCompile(`\b(productivity|progress|analy[sz]e|analysis|stats|statistics|report)\b|how am i doing`)
	suggestPattern  = regexp.MustCompile(`\b(suggest|suggestions?|advi[cs]e|recommend|tips?)\b`)

	taskIDPattern   = regexp.MustCompile(`\b(\d+)\b`)
	priorityPattern = regexp.MustCompile(`\b(high|medium|low)\b`)
	statusPattern   = regexp.MustCompile(`\b(pending|in[ _-]progress|completed|cancell?ed)\b`)

	// createLead strips the verb phrase and filler in front of the title:
	// "create a high priority task to buy milk" leaves "buy milk". It runs
	// against the original message so the title keeps its casing.
	createLead = regexp.MustCompile(`(?i)^.*?\b(create|add|make|remind me)\b\s*(a\s+|an\s+|the\s+)?((high|medium|low)\s+priority\s+)?(new\s+)?(task|todo|item|reminder)?\s*((to|for|called|named|about)\b\s*|:\s*)?`)
)

type rule struct {
	match func(string) bool
	build func(orig, lowered string) Intent
}

var rules = []rule{
	{matches(createPattern), buildCreate},
	{matches(listPattern), buildList},
	{matches(completePattern), buildComplete},
	{matches(deletePattern), buildDelete},
	{matches(updatePattern), buildUpdate},
	{matches(schedulePattern), buildBare(TypeScheduleTasks)},
	{matches(analyzePattern), buildBare(TypeAnalyzeProductivity)},
	{matches(suggestPattern), buildBare(TypeGetSuggestions)},
}

// ResolveRules applies the deterministic keyword tier to message. It
// never fails; a message matching no rule resolves to general.
func ResolveRules(message string) Intent {
	orig := strings.TrimSpace(message)
	m := strings.ToLower(orig)
	if m == "" {
		return General()
	}
	for _, r := range rules {
		if r.match(m) {
			return r.build(orig, m)
		}
	}
	return General()
}

func matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

func buildCreate(orig, m string) Intent {
	params := map[string]any{}
	if title := extractTitle(orig); title != "" {
		params["title"] = title
	}
	attachPriority(m, params)
	return Intent{Type: TypeCreateTask, Parameters: params}
}

func buildList(_, m string) Intent {
	params := map[string]any{}
	if s := statusPattern.FindString(m); s != "" {
		params["status"] = canonicalStatus(s)
	}
	attachPriority(m, params)
	if n, ok := firstInteger(m); ok {
		params["limit"] = n
	}
	return Intent{Type: TypeListTasks, Parameters: params}
}

func buildComplete(_, m string) Intent {
	params := map[string]any{}
	attachTaskID(m, params)
	return Intent{Type: TypeCompleteTask, Parameters: params}
}

func buildDelete(_, m string) Intent {
	params := map[string]any{}
	attachTaskID(m, params)
	return Intent{Type: TypeDeleteTask, Parameters: params}
}

func buildUpdate(_, m string) Intent {
	params := map[string]any{}
	attachTaskID(m, params)
	attachPriority(m, params)
	if s := statusPattern.FindString(m); s != "" {
		params["status"] = canonicalStatus(s)
	}
	return Intent{Type: TypeUpdateTask, Parameters: params}
}

func buildBare(t Type) func(string, string) Intent {
	return func(string, string) Intent {
		return Intent{Type: t, Parameters: map[string]any{}}
	}
}

// extractTitle removes the leading verb phrase and trims quoting; what
// remains is the task title. An empty remainder means the message named
// no title and the engine will ask for one.
func extractTitle(m string) string {
	rest := createLead.ReplaceAllString(m, "")
	return strings.Trim(rest, " \"'.!?,")
}

func attachTaskID(m string, params map[string]any) {
	if id, ok := firstInteger(m); ok {
		params["task_id"] = id
	}
}

func attachPriority(m string, params map[string]any) {
	if p := priorityPattern.FindString(m); p != "" {
		params["priority"] = p
	}
}

// firstInteger returns the first standalone integer in the message.
func firstInteger(m string) (int64, bool) {
	s := taskIDPattern.FindString(m)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func canonicalStatus(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.HasPrefix(s, "in"):
		return "in_progress"
	case strings.HasPrefix(s, "cancel"):
		return "cancelled"
	default:
		return s
	}
}
