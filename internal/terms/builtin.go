package terms

// technical are the technology and domain words recognized in prompts
// and reasoning text.
var technical = []string{
	"python", "javascript", "react", "node", "web", "mobile",
	"frontend", "backend", "fullstack", "database", "api",
	"machine", "learning", "ai", "automation", "data", "game",
	"app", "application", "cloud", "security",
}

// intent are words that signal a project-seeking prompt without naming a technology.
var intent = []string{
	"java", "ml", "desktop", "network", "system",
	"beginner", "intermediate", "advanced",
	"learn", "build", "create", "develop",
	"software", "program", "code", "project",
}

// stopwords are dropped by the query normalizer.
var stopwords = []string{
	"the", "a", "an", "and", "or", "but", "nor", "yet",
	"in", "on", "at", "to", "for", "of", "by", "as",
	"is", "are", "with", "from", "into", "onto", "upon",
	"about", "over", "under", "via",
}

var synonyms = map[string][]string{
	"javascript": {"js", "node", "nodejs"},
	"python":     {"python3", "py"},
	"typescript": {"ts"},
	"react":      {"reactjs", "react.js"},
}

// Technical returns the dictionary used for topic extraction.
func Technical() Set {
	return NewSet(technical...)
}

// Domain returns the dictionary used by the input validator: every
// technical term plus words that signal project intent.
func Domain() Set {
	return Technical().Union(NewSet(intent...))
}

// Stopwords returns the normalizer stopword set.
func Stopwords() Set {
	return NewSet(stopwords...)
}

// DefaultSynonyms returns the built-in synonym table.
func DefaultSynonyms() Synonyms {
	return NewSynonyms(synonyms)
}
