package agent

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func NewTaskID() string {
	return fmt.Sprintf("task:%s", uuid.New().String())
}

func IsTaskID(id string) bool {
	parts := strings.Split(id, ":")
	return len(parts) == 2 && parts[0] == "task"
}
