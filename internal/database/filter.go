package database

import "slices"

// MessageFilter selects messages. Empty fields do not constrain the result;
// a nil Ids does not either, but a non-nil empty Ids matches nothing.
type MessageFilter struct {
	Ids         []string
	BookingId   string
	PackageId   string
	Participant string
	Receiver    string
	UnreadOnly  bool
}

// ParticipantFilter builds the filter shared by fetch, mark-read and unread
// count: messages in the booking (or, failing that, package) room in which
// userId is the sender or the receiver.
func ParticipantFilter(userId, bookingId, packageId string) MessageFilter {
	f := MessageFilter{Participant: userId}
	if bookingId != "" {
		f.BookingId = bookingId
	} else if packageId != "" {
		f.PackageId = packageId
	}

	return f
}

// Unread narrows f to unread messages addressed to the participant.
func (f MessageFilter) Unread() MessageFilter {
	f.Receiver = f.Participant
	f.UnreadOnly = true
	return f
}

// WithIds restricts f to the given message ids.
func (f MessageFilter) WithIds(ids ...string) MessageFilter {
	f.Ids = append([]string{}, ids...)
	return f
}

func (f MessageFilter) Matches(m Message) bool {
	if f.Ids != nil && !slices.Contains(f.Ids, m.Id) {
		return false
	}
	if f.BookingId != "" && m.BookingId != f.BookingId {
		return false
	}
	if f.PackageId != "" && m.PackageId != f.PackageId {
		return false
	}
	if f.Participant != "" && m.SenderId != f.Participant && m.ReceiverId != f.Participant {
		return false
	}
	if f.Receiver != "" && m.ReceiverId != f.Receiver {
		return false
	}
	if f.UnreadOnly && m.IsRead {
		return false
	}

	return true
}
