package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxAuthorNameLen = 120
	maxBiografiIDLen = 64
	maxPhotoLen      = 255
	maxContentLen    = 5000
)

// 形如 "http:"、"data:"、"c:" 的前缀
var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// ValidatePhoto 只接受裸文件名：不能带路径分隔符、".." 或 URL scheme。空值合法。
func ValidatePhoto(photo string) error {
	const op = "services/ValidatePhoto"

	if photo == "" {
		return nil
	}
	switch {
	case strings.ContainsAny(photo, `/\`),
		strings.Contains(photo, ".."),
		schemePrefix.MatchString(photo),
		utf8.RuneCountInString(photo) > maxPhotoLen,
		strings.TrimSpace(photo) != photo:
		return fmt.Errorf("%s: %w: %w: %q", op, ErrValidation, ErrInvalidPhoto, photo)
	}
	for _, r := range photo {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("%s: %w: %w: control character", op, ErrValidation, ErrInvalidPhoto)
		}
	}
	return nil
}

// authorFields 是根评论和回复共有的作者字段。
type authorFields struct {
	AuthorName      string
	VoterBiografiID string
	AuthorPhoto     string
	Content         string
}

// normalize 修剪并校验作者字段，返回可以直接落库的值。
func (a authorFields) normalize(op string) (authorFields, error) {
	out := authorFields{
		AuthorName:      strings.TrimSpace(a.AuthorName),
		VoterBiografiID: strings.TrimSpace(a.VoterBiografiID),
		AuthorPhoto:     strings.TrimSpace(a.AuthorPhoto),
	}
	if out.AuthorName == "" {
		return out, validationErr(op, "author name is required")
	}
	if utf8.RuneCountInString(out.AuthorName) > maxAuthorNameLen {
		return out, validationErr(op, "author name exceeds %d characters", maxAuthorNameLen)
	}
	if utf8.RuneCountInString(out.VoterBiografiID) > maxBiografiIDLen {
		return out, validationErr(op, "voter biografi id exceeds %d characters", maxBiografiIDLen)
	}
	if err := ValidatePhoto(out.AuthorPhoto); err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}

	content, err := normalizeContent(op, a.Content)
	if err != nil {
		return out, err
	}
	out.Content = content
	return out, nil
}

// normalizeContent 只去掉首尾空白，正文按纯文本原样保存，转义留给渲染。
func normalizeContent(op, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", validationErr(op, "content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLen {
		return "", validationErr(op, "content exceeds %d characters", maxContentLen)
	}
	return content, nil
}
