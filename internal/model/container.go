package model

import "time"

// Container groups products. Containers are local-only: they are never
// synced to the remote store and carry no owner scope. Deleting a container
// clears the container reference on its products, it does not delete them.
type Container struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
