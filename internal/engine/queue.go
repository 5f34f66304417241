package engine

// Queue is the FIFO of pending tasks for one character. Insertion order is
// execution order. A Queue is not safe for concurrent use; its Runner
// serializes access.
type Queue struct {
	tasks []Task
	head  int
}

// Enqueue appends t to the tail.
func (q *Queue) Enqueue(t Task) {
	q.tasks = append(q.tasks, t)
}

// Dequeue removes and returns the head. It returns ErrEmptyQueue, and leaves
// the queue untouched, when there is nothing to remove.
func (q *Queue) Dequeue() (Task, error) {
	if q.IsEmpty() {
		return Task{}, ErrEmptyQueue
	}
	t := q.tasks[q.head]
	q.tasks[q.head] = Task{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.tasks) {
		q.tasks = q.tasks[:0]
		q.head = 0
	} else if q.head > 32 && q.head*2 >= len(q.tasks) {
		n := copy(q.tasks, q.tasks[q.head:])
		clear(q.tasks[n:])
		q.tasks = q.tasks[:n]
		q.head = 0
	}
	return t, nil
}

// IsEmpty reports whether the queue holds no tasks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	return len(q.tasks) - q.head
}

// Pending returns the action ids of the queued tasks, head first.
func (q *Queue) Pending() []string {
	ids := make([]string, 0, q.Len())
	for _, t := range q.tasks[q.head:] {
		ids = append(ids, t.actionID)
	}
	return ids
}

// Clear drops every pending task.
func (q *Queue) Clear() {
	clear(q.tasks)
	q.tasks = q.tasks[:0]
	q.head = 0
}
