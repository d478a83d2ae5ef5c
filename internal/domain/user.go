package domain

import "time"

// User owns transactions and receives notifications. The profile facts feed
// the challenge oracle's question context.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	CreatedAt time.Time `json:"created_at"`

	// Knowledge-based verification facts
	BirthCity        string `json:"-"`
	MotherMaidenName string `json:"-"`
	FirstPetName     string `json:"-"`
	FirstCarMake     string `json:"-"`
}
