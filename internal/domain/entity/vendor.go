package entity

import "time"

type Vendor struct {
	ID          string    `json:"id" firestore:"id"`
	Name        string    `json:"name" firestore:"name"`
	OwnerUserID string    `json:"owner_user_id" firestore:"ownerUserId"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`
	City        string    `json:"city,omitempty" firestore:"city,omitempty"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}
