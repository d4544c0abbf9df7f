package compressor

// Job is the transient state of one image inside the reduction loop.
type Job struct {
	Quality      int
	Scale        int
	SizeKB       float64
	WithinBudget bool
	Iterations   int

	// FloorSteps counts resize steps taken while quality was at the floor.
	FloorSteps int

	schedule []int
	next     int
}

func newJob(p Policy) *Job {
	return &Job{
		Quality:  p.StartQuality,
		Scale:    100,
		schedule: p.ResizeSchedule,
	}
}

// CanResize reports whether a schedule step is left.
func (j *Job) CanResize() bool {
	return j.next < len(j.schedule)
}

// NextScale advances one schedule step and returns its percent.
func (j *Job) NextScale() (int, bool) {
	if !j.CanResize() {
		return 0, false
	}
	pct := j.schedule[j.next]
	j.next++
	j.Scale = pct
	return pct, true
}

// LowerQuality decrements quality by step without going under floor.
func (j *Job) LowerQuality(step, floor int) {
	j.Quality = max(j.Quality-step, floor)
}
