package models

// Post is one scraped note. Link is carried for caching and the API but is
// not part of the exported row.
type Post struct {
	Title  string `json:"title"`
	Date   string `json:"date"`
	Author string `json:"author"`
	Likes  int    `json:"like"`
	Text   string `json:"text"`
	Link   string `json:"link,omitempty"`
}

// Row is the exported identity of a post. Two posts with equal rows are
// duplicates.
type Row struct {
	Title  string
	Date   string
	Author string
	Likes  int
	Text   string
}

// Row returns the exported columns of the post.
func (p Post) Row() Row {
	return Row{
		Title:  p.Title,
		Date:   p.Date,
		Author: p.Author,
		Likes:  p.Likes,
		Text:   p.Text,
	}
}

// Comment is a top-level comment under a note.
type Comment struct {
	Text string `json:"text"`
}
