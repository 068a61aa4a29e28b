package types

// RewardCurve accumulates the reward of an agent in fixed windows of episodes
type RewardCurve struct {
	Window int       `json:"window"`
	Points []float64 `json:"points"`

	cur   float64
	count int
}

func NewRewardCurve(window int) *RewardCurve {
	if window <= 0 {
		window = 1
	}
	return &RewardCurve{
		Window: window,
		Points: make([]float64, 0),
	}
}

// Append records the reward of one episode
func (c *RewardCurve) Append(reward float64) {
	c.cur += reward
	c.count += 1
	if c.count == c.Window {
		c.Points = append(c.Points, c.cur)
		c.cur = 0
		c.count = 0
	}
}

// Flush closes the current partial window, if any
func (c *RewardCurve) Flush() {
	if c.count > 0 {
		c.Points = append(c.Points, c.cur)
		c.cur = 0
		c.count = 0
	}
}

func (c *RewardCurve) Len() int {
	return len(c.Points)
}

// Total reward over all the recorded windows
func (c *RewardCurve) Total() float64 {
	total := c.cur
	for _, p := range c.Points {
		total += p
	}
	return total
}
