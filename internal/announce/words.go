package announce

import (
	"strconv"

	"manifestboard/internal/status"
)

var numberWords = [60]string{
	"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine",
	"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen", "eighteen", "nineteen",
	"twenty", "twenty one", "twenty two", "twenty three", "twenty four", "twenty five", "twenty six", "twenty seven", "twenty eight", "twenty nine",
	"thirty", "thirty one", "thirty two", "thirty three", "thirty four", "thirty five", "thirty six", "thirty seven", "thirty eight", "thirty nine",
	"forty", "forty one", "forty two", "forty three", "forty four", "forty five", "forty six", "forty seven", "forty eight", "forty nine",
	"fifty", "fifty one", "fifty two", "fifty three", "fifty four", "fifty five", "fifty six", "fifty seven", "fifty eight", "fifty nine",
}

var tensWords = [10]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

// NumberWords spells n in English for speech. Values outside 0–9999 fall
// back to digits.
func NumberWords(n int) string {
	switch {
	case n < 0 || n > 9999:
		return strconv.Itoa(n)
	case n < len(numberWords):
		return numberWords[n]
	case n < 100:
		if n%10 == 0 {
			return tensWords[n/10]
		}
		return tensWords[n/10] + " " + numberWords[n%10]
	case n < 1000:
		words := numberWords[n/100] + " hundred"
		if rest := n % 100; rest != 0 {
			words += " " + NumberWords(rest)
		}
		return words
	default:
		words := NumberWords(n/1000) + " thousand"
		if rest := n % 1000; rest != 0 {
			words += " " + NumberWords(rest)
		}
		return words
	}
}

// ClockWords speaks a manifest time on a 12-hour clock: "twelve o'clock",
// "nine oh five", "twelve ten".
func ClockWords(c status.Clock) string {
	hour := c.Hour % 12
	if hour == 0 {
		hour = 12
	}
	spoken := numberWords[hour]
	switch {
	case c.Minute == 0:
		return spoken + " o'clock"
	case c.Minute < 10:
		return spoken + " oh " + numberWords[c.Minute]
	default:
		return spoken + " " + numberWords[c.Minute]
	}
}
