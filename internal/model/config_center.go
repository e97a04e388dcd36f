package model

import (
	"strconv"
	"strings"
	"time"
)

type ConfigStatus int

const (
	ConfigStatusNormal     ConfigStatus = 0
	ConfigStatusHistorical ConfigStatus = 1
)

type ConfigAbility int

const (
	AbilityNo  ConfigAbility = 0
	AbilityYes ConfigAbility = 1
)

// ConfigEnabled is the config value meaning "feature on"; any other value means off.
const (
	ConfigEnabled  = "enabled"
	ConfigDisabled = "disabled"
)

type ConfigType int

const (
	ConfigGlobalTx ConfigType = iota + 1
	ConfigCompensation
	ConfigAutoCompensation
	ConfigBizInfoToKafka
	ConfigTxMonitor
	ConfigAlert
	ConfigSchedule
	ConfigGlobalTxFaultTolerant
	ConfigCompensationFaultTolerant
	ConfigAutoCompensationFaultTolerant
	ConfigPauseGlobalTx
)

func (t ConfigType) Valid() bool {
	return t >= ConfigGlobalTx && t <= ConfigPauseGlobalTx
}

// DefaultEnabled is the answer when no global config row exists for the type.
// Pause and fault-tolerance features are opt-in; everything else is on.
func (t ConfigType) DefaultEnabled() bool {
	switch t {
	case ConfigPauseGlobalTx, ConfigGlobalTxFaultTolerant, ConfigCompensationFaultTolerant, ConfigAutoCompensationFaultTolerant:
		return false
	default:
		return true
	}
}

func (t ConfigType) String() string { return strconv.Itoa(int(t)) }

// ConfigCenter is one row of the config_center table. A blank InstanceID marks the global row.
type ConfigCenter struct {
	ID          int64         `db:"id"           json:"id"`
	ServiceName string        `db:"service_name" json:"serviceName"`
	InstanceID  string        `db:"instance_id"  json:"instanceId"`
	Category    string        `db:"category"     json:"category"`
	Status      ConfigStatus  `db:"status"       json:"status"`
	Ability     ConfigAbility `db:"ability"      json:"ability"`
	Type        ConfigType    `db:"type"         json:"type"`
	Value       string        `db:"value"        json:"value"`
	Remark      string        `db:"remark"       json:"remark"`
	UpdateTime  time.Time     `db:"update_time"  json:"updateTime"`
}

func (c ConfigCenter) IsGlobal() bool { return strings.TrimSpace(c.InstanceID) == "" }
