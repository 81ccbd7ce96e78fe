package domain

const (
	MailTypeCreateUser  = "create_user"
	MailTypeRunFinished = "run_finished"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RunFinishedMailData 在优化任务结束（成功或失败）后发送给发起人
type RunFinishedMailData struct {
	FullName         string    `json:"fullName"`
	RunID            int64     `json:"runID"`
	RosterName       string    `json:"rosterName"`
	Status           RunStatus `json:"status"`
	WeightedScore    float64   `json:"weightedScore"`
	CompliantBuckets int32     `json:"compliantBuckets"`
	TotalBuckets     int32     `json:"totalBuckets"`
	ErasCompleted    int32     `json:"erasCompleted"`
	ErrorMessage     string    `json:"errorMessage"`
}
