package taskstore

const ResponsesFileName = "agent-responses.json"

// ResponseStore keeps agent replies keyed by id, one record per id.
type ResponseStore struct {
	path string
}

func NewResponseStore(path string) *ResponseStore {
	return &ResponseStore{path: path}
}

func (s *ResponseStore) Path() string {
	return s.path
}

// ListResponses also accepts a file holding a single object.
func (s *ResponseStore) ListResponses() ([]AgentResponse, error) {
	return loadJSONList[AgentResponse](s.path, true)
}

func (s *ResponseStore) UpsertResponse(rec AgentResponse) (AgentResponse, error) {
	list, err := s.ListResponses()
	if err != nil {
		return AgentResponse{}, err
	}
	for i := range list {
		if list[i].ID == rec.ID {
			list[i] = list[i].Merge(rec)
			if err := writeJSONAtomically(s.path, list); err != nil {
				return AgentResponse{}, err
			}
			return list[i], nil
		}
	}
	merged := AgentResponse{}.Merge(rec)
	list = append(list, merged)
	if err := writeJSONAtomically(s.path, list); err != nil {
		return AgentResponse{}, err
	}
	return merged, nil
}
