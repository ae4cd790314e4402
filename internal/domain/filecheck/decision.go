package filecheck

// Score thresholds. Lower scores are more suspicious.
const (
	MaliciousBelow           = 20
	ReputationCleanAtOrAbove = 70
	StaticCleanAbove         = 70
)

// Outcome of applying a tier's thresholds to its score.
type Outcome int

const (
	OutcomeEscalate Outcome = iota
	OutcomeMalicious
	OutcomeClean
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMalicious:
		return "malicious"
	case OutcomeClean:
		return "clean"
	default:
		return "escalate"
	}
}

// Decide applies the thresholds of tier to score.
// The reputation upper bound is inclusive while the static one is strict;
// dynamic is terminal and never escalates.
func Decide(tier Tier, score int) Outcome {
	if score < MaliciousBelow {
		return OutcomeMalicious
	}
	switch tier {
	case TierReputation:
		if score >= ReputationCleanAtOrAbove {
			return OutcomeClean
		}
	case TierStatic:
		if score > StaticCleanAbove {
			return OutcomeClean
		}
	case TierDynamic:
		return OutcomeClean
	}
	return OutcomeEscalate
}
