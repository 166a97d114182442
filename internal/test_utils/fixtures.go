package test_utils

// SampleLectures returns two lectures on 2024-06-05 (one of them listed twice) and one
// on 2024-06-06, with ids as numbers the way the API sends them.
func SampleLectures() []Record {
	return []Record{
		{"id": 1, "date": "2024-06-05", "title": "Distributed Systems", "time": "10:00 - 11:30", "instructor": "Dr. Han", "colorClass": "lectureBlue"},
		{"id": 1, "date": "2024-06-05", "title": "Distributed Systems", "time": "10:00 - 11:30", "instructor": "Dr. Han", "colorClass": "lectureBlue"},
		{"id": 2, "date": "2024-06-06", "title": "Compilers", "time": "14:00", "instructor": "Prof. Lee", "colorClass": "lectureGreen"},
	}
}

// SampleMaterials returns materials in both field spellings the API uses.
func SampleMaterials() []Record {
	return []Record{
		{"id": 10, "title": "Week 1 slides", "originalName": "week1.pdf", "size": 2048, "uploadDate": "2024-06-05T05:30:00Z"},
		{"id": "11", "title": "", "name": "notes.txt", "size": "3 KB", "upload_date": "2024. 06. 01. 09:00"},
	}
}
