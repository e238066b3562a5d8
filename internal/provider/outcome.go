package provider

// OutcomeKind is the three-way result of a Scrape call.
type OutcomeKind int

const (
	KindNoAnswer OutcomeKind = iota
	KindAnswered
	KindFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case KindAnswered:
		return "answered"
	case KindFailed:
		return "failed"
	default:
		return "no-answer"
	}
}

// Outcome carries a source's answer, its absence, or a failure.
type Outcome struct {
	Kind   OutcomeKind
	Result *ScrapeResult
	Err    error
}

// Answered wraps a result. A nil Stingers slice is normalized to empty.
func Answered(res *ScrapeResult) Outcome {
	if res == nil {
		return NoAnswer()
	}
	if res.Stingers == nil {
		res.Stingers = []Stinger{}
	}
	return Outcome{Kind: KindAnswered, Result: res}
}

// NoAnswer reports that the source could not determine an answer.
func NoAnswer() Outcome {
	return Outcome{Kind: KindNoAnswer}
}

// Failed reports a transport, schema or auth failure.
func Failed(err error) Outcome {
	if err == nil {
		return NoAnswer()
	}
	return Outcome{Kind: KindFailed, Err: err}
}

// IsAnswered reports whether the outcome should stop the fan-out.
func (o Outcome) IsAnswered() bool {
	return o.Kind == KindAnswered && o.Result != nil
}
