package order

// ProgressInfo describes where an order sits on the three-step delivery
// timeline (En préparation → En route → Livré).
type ProgressInfo struct {
	// Percent is one of 0, 33, 66, 100.
	Percent int `json:"percent"`
	// Step is the index of the reached step, 0 when none is reached yet.
	Step int `json:"step"`
	// Message is the status-specific human-readable line.
	Message string `json:"message"`
	// Terminal marks states with no further transitions.
	Terminal bool `json:"terminal"`
}

// Progress derives the delivery timeline position from a display status.
// It is a pure lookup; cancelled orders get a terminal message and an empty
// timeline.
func Progress(s Status) ProgressInfo {
	switch s {
	case StatusPreparing:
		return ProgressInfo{Percent: 33, Step: 1, Message: "Votre commande est en cours de préparation."}
	case StatusInTransit:
		return ProgressInfo{Percent: 66, Step: 2, Message: "Votre commande est en route vers vous."}
	case StatusDelivered:
		return ProgressInfo{Percent: 100, Step: 3, Message: "Votre commande a été livrée. Bon appétit !", Terminal: true}
	case StatusCancelled:
		return ProgressInfo{Percent: 0, Step: 0, Message: "Cette commande a été annulée.", Terminal: true}
	default:
		return ProgressInfo{Percent: 0, Step: 0, Message: "Votre commande est en attente de confirmation."}
	}
}
