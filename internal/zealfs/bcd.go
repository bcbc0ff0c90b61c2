// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package zealfs

import "time"

// toBCD encodes a two-digit decimal value (0-99) as one BCD byte. Mirrors
// original_source/include/zealfs_v2.h's to_bcd.
func toBCD(v int) uint8 {
	return uint8((v/10)<<4 | (v % 10))
}

// fromBCD decodes one BCD byte back to its decimal value. Mirrors
// original_source/include/zealfs_v2.h's from_bcd.
func fromBCD(b uint8) int {
	return int(b>>4)*10 + int(b&0x0f)
}

// EncodeTimestamp packs t into a directory entry's BCD date/time fields.
// The year is stored as two BCD bytes (century, year-within-century) to
// match zealfs_entry_t's year[2] layout.
func EncodeTimestamp(t time.Time) (year [2]byte, month, day, date, hours, minutes, seconds uint8) {
	y := t.Year()
	year[0] = toBCD(y / 100)
	year[1] = toBCD(y % 100)
	month = toBCD(int(t.Month()))
	day = toBCD(t.Day())
	date = toBCD(int(t.Weekday()))
	hours = toBCD(t.Hour())
	minutes = toBCD(t.Minute())
	seconds = toBCD(t.Second())
	return
}

// DecodeTimestamp reverses EncodeTimestamp, returning the local time encoded
// in a directory entry's BCD fields.
func DecodeTimestamp(year [2]byte, month, day, hours, minutes, seconds uint8) time.Time {
	y := fromBCD(year[0])*100 + fromBCD(year[1])
	return time.Date(y, time.Month(fromBCD(month)), fromBCD(day),
		fromBCD(hours), fromBCD(minutes), fromBCD(seconds), 0, time.Local)
}

// Timestamp returns e's modification time as decoded from its BCD fields.
func (e *Entry) Timestamp() time.Time {
	return DecodeTimestamp(e.Year, e.Month, e.Day, e.Hours, e.Minutes, e.Seconds)
}

// SetTimestamp stores t into e's BCD date/time fields.
func (e *Entry) SetTimestamp(t time.Time) {
	e.Year, e.Month, e.Day, e.Date, e.Hours, e.Minutes, e.Seconds = EncodeTimestamp(t)
}
