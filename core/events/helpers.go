package events

import "strconv"

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatNonce(n uint8) string {
	return strconv.FormatUint(uint64(n), 10)
}
