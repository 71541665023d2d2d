package services

import (
	"fmt"
	"strings"

	"github.com/tropicaldog17/replyqueue/internal/models"
)

func rewritePrompt(lang, comment, template string, maxChars int) string {
	if lang == models.LangThai {
		return strings.Join([]string{
			"คุณเป็นผู้ช่วยเขียนคอมเมนต์ตอบกลับบนเพจ Facebook",
			"ให้รีไรท์จาก TEMPLATE ให้ดูเป็นมนุษย์ขึ้นเล็กน้อย (ความหมายเดิม)",
			"ข้อห้าม:",
			"- ห้ามเพิ่มข้อมูลใหม่หรือคำสัญญาที่ TEMPLATE ไม่ได้บอก",
			"- ห้ามประชด/เสียดสี",
			"- ห้ามบอกว่าเป็นบอทหรือระบบอัตโนมัติ",
			fmt.Sprintf("จำกัดไม่เกิน %d ตัวอักษร", maxChars),
			"",
			"ORIGINAL_COMMENT: " + comment,
			"TEMPLATE: " + template,
			"",
			"ตอบกลับเป็นข้อความบรรทัดเดียวเท่านั้น",
		}, "\n")
	}
	return strings.Join([]string{
		"You write Facebook page replies.",
		"Rewrite ONLY the TEMPLATE to sound slightly more human, same meaning.",
		"Do not add new claims. No sarcasm. Do not mention bots/automation.",
		fmt.Sprintf("Max %d characters. One line only.", maxChars),
		"",
		"ORIGINAL_COMMENT: " + comment,
		"TEMPLATE: " + template,
	}, "\n")
}

func impactPrompt(lang, comment, reply string) string {
	if lang == models.LangThai {
		return strings.Join([]string{
			"ประเมินว่าคำตอบนี้ทำให้คนคอมเมนต์รู้สึกดีหรือไม่",
			"ตอบเป็น JSON object เดียวเท่านั้น ไม่มีข้อความอื่น",
			"ฟิลด์: score (0-100), risk (low|med|high), reason",
			"ถ้าดูประชด เสียดสี ไม่ให้เกียรติ หรือเสี่ยงดราม่า ให้ risk=high และ score ต่ำ",
			"",
			"COMMENT: " + comment,
			"REPLY: " + reply,
		}, "\n")
	}
	return strings.Join([]string{
		"Judge whether this reply will likely make the commenter feel good.",
		"Return a single JSON object only: score (0-100), risk (low|med|high), reason.",
		"If sarcastic/dismissive/drama-prone: risk=high and low score.",
		"",
		"COMMENT: " + comment,
		"REPLY: " + reply,
	}, "\n")
}
