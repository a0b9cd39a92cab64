// Package locale holds the user-facing strings that differ per language.
package locale

import "strings"

type Locale string

const (
	Thai    Locale = "th"
	English Locale = "en"
)

var Supported = []Locale{Thai, English}

// Messages is the set of strings one locale provides.
type Messages struct {
	UnknownFood      string
	DefaultAmount    string
	AnalysisFailed   string
	AnalysisTimeout  string
	AnalysisDisabled string
	AnalysisPrompt   string
	SelectImageFirst string
}

var catalog = map[Locale]Messages{
	Thai: {
		UnknownFood:      "ไม่สามารถระบุชื่ออาหารได้",
		DefaultAmount:    "1 หน่วยบริโภค",
		AnalysisFailed:   "ไม่สามารถวิเคราะห์รูปภาพอาหารได้ กรุณาลองอีกครั้งหรือกรอกข้อมูลด้วยตนเอง",
		AnalysisTimeout:  "การวิเคราะห์รูปภาพใช้เวลานานเกินไป กรุณาลองอีกครั้งหรือกรอกข้อมูลด้วยตนเอง",
		AnalysisDisabled: "ยังไม่ได้ตั้งค่าบริการวิเคราะห์รูปภาพ กรุณากรอกข้อมูลด้วยตนเอง",
		AnalysisPrompt:   "วิเคราะห์รูปภาพอาหารนี้ในฐานะนักโภชนาการ ประเมินชื่ออาหารและสารอาหารหลักสำหรับหนึ่งหน่วยบริโภคมาตรฐาน (แคลอรี่, โปรตีน, คาร์โบไฮเดรต, ไขมัน) และตอบกลับเป็นภาษาไทยในรูปแบบ JSON ที่กำหนดเท่านั้น",
		SelectImageFirst: "กรุณาเลือกรูปภาพก่อน",
	},
	English: {
		UnknownFood:      "Unidentified food",
		DefaultAmount:    "1 serving",
		AnalysisFailed:   "Could not analyze the food image. Try again or enter the details manually.",
		AnalysisTimeout:  "Image analysis took too long. Try again or enter the details manually.",
		AnalysisDisabled: "Image analysis is not configured. Enter the details manually.",
		AnalysisPrompt:   "Analyze this food image as a nutritionist. Estimate the food name and the main nutrients for one standard serving (calories, protein, carbohydrates, fat) and respond in English using only the given JSON schema.",
		SelectImageFirst: "Select an image first.",
	},
}

// Parse normalizes value to a supported locale, reporting whether it was
// recognised.
func Parse(value string) (Locale, bool) {
	l := Locale(strings.ToLower(strings.TrimSpace(value)))
	if i := strings.IndexAny(string(l), "-_"); i > 0 {
		l = l[:i]
	}
	_, ok := catalog[l]
	return l, ok
}

// For returns the messages of l, falling back to Thai.
func For(l Locale) Messages {
	if m, ok := catalog[l]; ok {
		return m
	}
	return catalog[Thai]
}
