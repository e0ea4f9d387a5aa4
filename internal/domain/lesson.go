package domain

type Lesson struct {
	ID       string  `json:"id" bson:"id" db:"id"`
	Topic    string  `json:"topic" bson:"topic" db:"topic"`
	Location string  `json:"location" bson:"location" db:"location"`
	Price    float64 `json:"price" bson:"price" db:"price"`
	Space    int     `json:"space" bson:"space" db:"space"`
}

// LessonPatch is the typed form of a lesson update. Nil fields are left
// untouched.
type LessonPatch struct {
	Topic    *string
	Location *string
	Price    *float64
	Space    *int
}

func (p *LessonPatch) IsEmpty() bool {
	return p == nil || (p.Topic == nil && p.Location == nil && p.Price == nil && p.Space == nil)
}

// Apply copies the set fields of p onto l.
func (p *LessonPatch) Apply(l *Lesson) {
	if p == nil {
		return
	}
	if p.Topic != nil {
		l.Topic = *p.Topic
	}
	if p.Location != nil {
		l.Location = *p.Location
	}
	if p.Price != nil {
		l.Price = *p.Price
	}
	if p.Space != nil {
		l.Space = *p.Space
	}
}
