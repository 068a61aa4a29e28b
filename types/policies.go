package types

// Policy is the learning part of an agent. A policy instance is owned by
// exactly one worker and is never called concurrently.
type Policy interface {
	// NextAction picks the action to take in state
	NextAction(sCtx *StepContext, state int) int
	// Update learns from the observed transition
	Update(sCtx *StepContext, state, action int, reward float64, nextState int)
	// Reset forgets everything learnt so far
	Reset()
}

// ValuePolicy is a policy backed by a state-action value table
type ValuePolicy interface {
	Policy
	// Values returns a copy of the table indexed by [state][action]
	Values() [][]float64
}

// RandomPolicy picks actions uniformly and learns nothing
type RandomPolicy struct {
	actions int
}

var _ Policy = &RandomPolicy{}

func NewRandomPolicy(actions int) *RandomPolicy {
	return &RandomPolicy{
		actions: actions,
	}
}

func (r *RandomPolicy) Reset() {}

func (r *RandomPolicy) NextAction(sCtx *StepContext, _ int) int {
	return sCtx.Rand.Intn(r.actions)
}

func (r *RandomPolicy) Update(_ *StepContext, _, _ int, _ float64, _ int) {}
