package workflow

// The balance is always derived by replaying the employee's full request
// history. There is no stored balance column, so the request log and the
// balance cannot drift apart: approval of a request deducts its days simply
// by virtue of the request now counting as approved.

// UsedDays sums the day counts of approved requests.
func UsedDays(requests []LeaveRequest) int {
	used := 0
	for _, req := range requests {
		if req.Status == StatusApproved {
			used += req.Days
		}
	}
	return used
}

// RemainingBalance computes the employee's balance as of now from the given
// allotment and full request history. Pending and rejected requests do not
// consume balance. A negative result is only possible if the stored history
// was corrupted outside the workflow; the validator never admits a request
// that would overdraw.
func RemainingBalance(allotment int, requests []LeaveRequest) int {
	return allotment - UsedDays(requests)
}
