package scoring

import "strings"

// interviewerClosingCues are substrings that mark an interviewer utterance
// as a session close. Matching is case-insensitive.
var interviewerClosingCues = []string{
	"do you have any questions",
	"that concludes",
	"thank you for your time",
	"this concludes our interview",
	"wraps up our interview",
	"best of luck",
}

// candidateClosingCues mark a candidate utterance as "no more questions".
var candidateClosingCues = []string{
	"that's all",
	"thats all",
	"that is all",
	"no more questions",
	"no further questions",
	"nothing else",
	"i'm good",
	"im good",
	"i am good",
	"all set",
}

// IsInterviewerClosing reports whether an interviewer utterance reads like a
// session close. This is a secondary, content-based signal; the counter-based
// question cap always has the final say.
func IsInterviewerClosing(text string) bool {
	return containsAny(text, interviewerClosingCues)
}

// IsCandidateDone reports whether a candidate utterance during the question
// invitation means they have no more questions. A bare leading "no" counts.
func IsCandidateDone(text string) bool {
	normalized := normalize(text)
	if normalized == "no" || strings.HasPrefix(normalized, "no ") || strings.HasPrefix(normalized, "no,") {
		return true
	}
	return containsAny(text, candidateClosingCues)
}

// IsAffirmative classifies a short spoken reply as a yes. Used for the
// first-time-candidate question: an explicit "no" wins over anything else,
// then yes-words and "first" count as affirmative, and an answer with no cue
// at all is treated as affirmative so the candidate gets the gentler opening.
func IsAffirmative(text string) bool {
	normalized := normalize(text)
	for _, word := range strings.Fields(normalized) {
		switch strings.Trim(word, ".,!?") {
		case "no", "nope", "nah":
			return false
		}
	}
	for _, cue := range []string{"yes", "yeah", "yep", "first", "never done"} {
		if strings.Contains(normalized, cue) {
			return true
		}
	}
	return true
}

func containsAny(text string, cues []string) bool {
	normalized := normalize(text)
	for _, cue := range cues {
		if strings.Contains(normalized, cue) {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
