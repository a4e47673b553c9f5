package models

// RoomPlayer is a user seated in a room, in seat order.
type RoomPlayer struct {
	UserID   int64  `json:"user_id" bson:"user_id"`
	Username string `json:"username" bson:"username"`
	Seat     int    `json:"seat" bson:"seat"`
}
