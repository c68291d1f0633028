package util

import "strings"

const (
	KakaoSeeMorePadding = 500
	KakaoZeroWidthSpace = "\u200b"
)

// 카카오톡 '전체보기'용 제로폭 문자를 채워 메시지를 확장.
func ApplyKakaoSeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	message := strings.TrimSpace(instruction)

	var builder strings.Builder
	builder.Grow(len(text) + len(KakaoZeroWidthSpace)*KakaoSeeMorePadding + len(message) + 1)

	builder.WriteString(message)
	builder.WriteString(strings.Repeat(KakaoZeroWidthSpace, KakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		builder.WriteByte('\n')
	}
	builder.WriteString(text)

	return builder.String()
}

// FoldFirstLine keeps the first line of text visible in the chat preview and
// hides the rest behind '전체보기'. Single-line text is returned unchanged.
func FoldFirstLine(text string) string {
	head, body, ok := strings.Cut(text, "\n")
	if !ok || strings.TrimSpace(body) == "" {
		return text
	}
	return ApplyKakaoSeeMorePadding(body, head)
}
