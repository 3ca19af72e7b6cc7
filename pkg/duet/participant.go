package duet

import "fmt"

// Participant identifies one side of the dialogue. Its numeric value is
// the "llm" field on the wire.
type Participant int

const (
	ParticipantA Participant = 1
	ParticipantB Participant = 2
)

// Other returns the opposite participant.
func (p Participant) Other() Participant {
	if p == ParticipantA {
		return ParticipantB
	}
	return ParticipantA
}

func (p Participant) Valid() bool {
	return p == ParticipantA || p == ParticipantB
}

func (p Participant) String() string {
	switch p {
	case ParticipantA:
		return "A"
	case ParticipantB:
		return "B"
	default:
		return fmt.Sprintf("Participant(%d)", int(p))
	}
}

// index maps a participant to its history slot.
func (p Participant) index() int {
	if !p.Valid() {
		panic(fmt.Sprintf("duet: invalid participant %d", int(p)))
	}
	return int(p) - 1
}
