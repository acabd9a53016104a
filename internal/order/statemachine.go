package order

// transitions holds the directed edges of the order lifecycle. Terminal
// states have no outgoing edges.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// cancellableFrom are the states a user or admin may cancel out of.
var cancellableFrom = []OrderStatus{StatusPending, StatusProcessing}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SourcesFor returns every state with an edge into the target. Used to build
// the conditional update that enforces the machine at the storage layer too.
func SourcesFor(to OrderStatus) []OrderStatus {
	var sources []OrderStatus
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				sources = append(sources, from)
			}
		}
	}
	return sources
}

func IsTerminal(s OrderStatus) bool {
	return len(transitions[s]) == 0
}

func IsValidStatus(s OrderStatus) bool {
	_, ok := transitions[s]
	return ok
}
