package tools

import "sort"

// DiscoverAllDevicesResponse is discover_all_devices' output: every device
// in the structure catalogue, grouped by room.
type DiscoverAllDevicesResponse struct {
	DevicesByRoom map[string][]DeviceSummary `json:"devices_by_room"`
	TotalDevices  int                        `json:"total_devices"`
	TotalRooms    int                        `json:"total_rooms"`
	Error         string                     `json:"error,omitempty"`
}

// DiscoverAllDevices returns the full device inventory grouped by room
// name, as loaded by C7 at startup.
func (tc *ToolContext) DiscoverAllDevices() DiscoverAllDevicesResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return DiscoverAllDevicesResponse{Error: errString(err)}
	}

	uuids := make([]string, 0, len(cat.Devices))
	for uuid := range cat.Devices {
		uuids = append(uuids, uuid)
	}
	sort.Strings(uuids)

	byRoom := make(map[string][]DeviceSummary)
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		byRoom[dev.RoomName] = append(byRoom[dev.RoomName], DeviceSummary{
			UUID: dev.UUID, Name: dev.Name, Type: dev.Type, Room: dev.RoomName, Category: dev.CategoryName,
		})
	}

	return DiscoverAllDevicesResponse{
		DevicesByRoom: byRoom,
		TotalDevices:  len(cat.Devices),
		TotalRooms:    len(byRoom),
	}
}

// GetDevicesByCategoryResponse is get_devices_by_category's output.
type GetDevicesByCategoryResponse struct {
	Category string          `json:"category,omitempty"`
	Devices  []DeviceSummary `json:"devices"`
	Count    int             `json:"count"`
	Error    string          `json:"error,omitempty"`
}

// GetDevicesByCategory lists devices for one named category, or every
// category bucket when category is empty.
func (tc *ToolContext) GetDevicesByCategory(category string) GetDevicesByCategoryResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetDevicesByCategoryResponse{Error: errString(err)}
	}

	var uuids []string
	if category != "" {
		uuids = append([]string(nil), cat.ByCategory[category]...)
	} else {
		for _, list := range cat.ByCategory {
			uuids = append(uuids, list...)
		}
	}
	sort.Strings(uuids)

	devices := make([]DeviceSummary, 0, len(uuids))
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		devices = append(devices, DeviceSummary{UUID: dev.UUID, Name: dev.Name, Type: dev.Type, Room: dev.RoomName, Category: dev.CategoryName})
	}

	return GetDevicesByCategoryResponse{Category: category, Devices: devices, Count: len(devices)}
}

// GetDevicesByTypeResponse is get_devices_by_type's output.
type GetDevicesByTypeResponse struct {
	DeviceType string          `json:"device_type,omitempty"`
	Devices    []DeviceSummary `json:"devices"`
	Count      int             `json:"count"`
	Error      string          `json:"error,omitempty"`
}

// GetDevicesByType lists devices of one exact Loxone control type, or every
// type bucket when deviceType is empty.
func (tc *ToolContext) GetDevicesByType(deviceType string) GetDevicesByTypeResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetDevicesByTypeResponse{Error: errString(err)}
	}

	var uuids []string
	if deviceType != "" {
		uuids = append([]string(nil), cat.ByType[deviceType]...)
	} else {
		for _, list := range cat.ByType {
			uuids = append(uuids, list...)
		}
	}
	sort.Strings(uuids)

	devices := make([]DeviceSummary, 0, len(uuids))
	for _, uuid := range uuids {
		dev := cat.Devices[uuid]
		devices = append(devices, DeviceSummary{UUID: dev.UUID, Name: dev.Name, Type: dev.Type, Room: dev.RoomName, Category: dev.CategoryName})
	}

	return GetDevicesByTypeResponse{DeviceType: deviceType, Devices: devices, Count: len(devices)}
}

// CategoryOverviewEntry is one category's summary row.
type CategoryOverviewEntry struct {
	Category    string `json:"category"`
	DeviceCount int    `json:"device_count"`
}

// GetAllCategoriesOverviewResponse is get_all_categories_overview's output.
type GetAllCategoriesOverviewResponse struct {
	Categories []CategoryOverviewEntry `json:"categories"`
	Error      string                  `json:"error,omitempty"`
}

// GetAllCategoriesOverview summarizes device counts per category, sorted by
// category name.
func (tc *ToolContext) GetAllCategoriesOverview() GetAllCategoriesOverviewResponse {
	cat, err := tc.requireCatalog()
	if err != nil {
		return GetAllCategoriesOverviewResponse{Error: errString(err)}
	}

	names := make([]string, 0, len(cat.ByCategory))
	for name := range cat.ByCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]CategoryOverviewEntry, 0, len(names))
	for _, name := range names {
		out = append(out, CategoryOverviewEntry{Category: name, DeviceCount: len(cat.ByCategory[name])})
	}

	return GetAllCategoriesOverviewResponse{Categories: out}
}
