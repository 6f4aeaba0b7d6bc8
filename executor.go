package xtheme

// InlineExecutor runs each task immediately on the caller's goroutine.
// Nested posts run nested, which keeps handler ordering identical to a direct call.
type InlineExecutor struct{}

func (InlineExecutor) Post(task func()) bool {
	if task == nil {
		return false
	}
	task()
	return true
}
