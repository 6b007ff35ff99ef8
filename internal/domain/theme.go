package domain

type ThemeType string

const (
	ThemeShare      ThemeType = "share"
	ThemeDiscussion ThemeType = "discussion"
	ThemeAd         ThemeType = "ad"
	ThemeNotice     ThemeType = "notice"
)

type ThemeStyle struct {
	Label      string
	Border     string
	Text       string
	Background string
}

var themeStyles = map[ThemeType]ThemeStyle{
	ThemeShare:      {Label: "Share", Border: "border-red", Text: "text-red", Background: "bg-red"},
	ThemeDiscussion: {Label: "Discussion", Border: "border-blue", Text: "text-blue", Background: "bg-blue"},
	ThemeAd:         {Label: "Ad", Border: "border-green", Text: "text-green", Background: "bg-green"},
	ThemeNotice:     {Label: "Notice", Border: "border-yellow", Text: "text-yellow", Background: "bg-yellow"},
}

// ThemeTypes lists the known types in display order.
func ThemeTypes() []ThemeType {
	return []ThemeType{ThemeShare, ThemeDiscussion, ThemeAd, ThemeNotice}
}

func (t ThemeType) Known() bool {
	_, ok := themeStyles[t]
	return ok
}

// Style falls back to the notice style for unknown types.
func (t ThemeType) Style() ThemeStyle {
	if s, ok := themeStyles[t]; ok {
		return s
	}
	return themeStyles[ThemeNotice]
}

// Editable reports whether posts of this type may be edited by their author.
func (t ThemeType) Editable() bool {
	return t == ThemeShare
}

type Theme struct {
	ID         ID        `json:"id" validate:"required"`
	Title      string    `json:"title"`
	ThemeType  ThemeType `json:"theme_type"`
	Author     User      `json:"author"`
	CreatedAt  Timestamp `json:"created_at"`
	FirstPost  ID        `json:"first_post"`
	PostCount  int       `json:"post_count"`
	ImageCount int       `json:"image_count"`
	FirstImage *Image    `json:"first_image,omitempty"`
	Content    string    `json:"content,omitempty"`
}

// Cover is the image shown on a feed card, nil when the card shows a text
// summary instead.
func (t Theme) Cover() *Image {
	if t.FirstImage == nil || t.FirstImage.URL == "" {
		return nil
	}
	return t.FirstImage
}
