package domain

import "strings"

// RoomType is the kind of space a homeowner is renovating.
type RoomType string

const (
	RoomKitchen    RoomType = "kitchen"
	RoomBathroom   RoomType = "bathroom"
	RoomLivingRoom RoomType = "living_room"
	RoomBedroom    RoomType = "bedroom"
	RoomDiningRoom RoomType = "dining_room"
	RoomHomeOffice RoomType = "home_office"
	RoomOther      RoomType = "other"
)

var knownRoomTypes = map[RoomType]bool{
	RoomKitchen:    true,
	RoomBathroom:   true,
	RoomLivingRoom: true,
	RoomBedroom:    true,
	RoomDiningRoom: true,
	RoomHomeOffice: true,
	RoomOther:      true,
}

// ParseRoomType resolves raw input ("Living Room", "living-room") to a known RoomType.
func ParseRoomType(raw string) (RoomType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	rt := RoomType(key)
	if !knownRoomTypes[rt] {
		return "", false
	}
	return rt, true
}

// NormalizeRoomType is ParseRoomType with unknown values folded into RoomOther.
func NormalizeRoomType(raw string) RoomType {
	if rt, ok := ParseRoomType(raw); ok {
		return rt
	}
	return RoomOther
}
