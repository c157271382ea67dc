package scheduler

import (
	"fmt"
	"strconv"
	"time"

	"campaign-scheduler/internal/engine"
	"campaign-scheduler/internal/facility"
)

// Payload keys of a send job.
const (
	KeyTemplateName = "templateName"
	KeySendTime     = "sendTime"
	KeyCustomerID   = "customerId"
	KeyPriority     = "priority"
)

const identityTimeLayout = "20060102150405"

// JobData is everything a send job needs at execution time.
type JobData struct {
	TemplateName string
	SendTime     time.Time
	CustomerID   int
	Priority     int
}

func NewJobData(a engine.Assignment) JobData {
	return JobData{
		TemplateName: a.Campaign.TemplateName,
		SendTime:     a.Campaign.SendTime,
		CustomerID:   a.Customer.ID,
		Priority:     a.Campaign.Priority,
	}
}

// Identity is deterministic, so registering the same assignment twice is
// detected by the facility as a duplicate.
func (d JobData) Identity() string {
	return fmt.Sprintf("%s_%d_%s_%d", d.TemplateName, d.CustomerID, d.SendTime.Format(identityTimeLayout), d.Priority)
}

func (d JobData) Payload() facility.Payload {
	return facility.Payload{
		KeyTemplateName: d.TemplateName,
		KeySendTime:     d.SendTime.Format(time.RFC3339Nano),
		KeyCustomerID:   strconv.Itoa(d.CustomerID),
		KeyPriority:     strconv.Itoa(d.Priority),
	}
}

// ParseJobData rebuilds JobData from a fired payload.
func ParseJobData(p facility.Payload) (JobData, error) {
	var d JobData
	for _, k := range []string{KeyTemplateName, KeySendTime, KeyCustomerID, KeyPriority} {
		if _, ok := p[k]; !ok {
			return d, fmt.Errorf("job payload: missing %q", k)
		}
	}
	var err error
	d.TemplateName = p[KeyTemplateName]
	if d.SendTime, err = time.Parse(time.RFC3339Nano, p[KeySendTime]); err != nil {
		return d, fmt.Errorf("job payload: %s: %w", KeySendTime, err)
	}
	if d.CustomerID, err = strconv.Atoi(p[KeyCustomerID]); err != nil {
		return d, fmt.Errorf("job payload: %s: %w", KeyCustomerID, err)
	}
	if d.Priority, err = strconv.Atoi(p[KeyPriority]); err != nil {
		return d, fmt.Errorf("job payload: %s: %w", KeyPriority, err)
	}
	return d, nil
}
