package location

var maharashtra = []Region{
	{Name: "Ahmednagar", SubRegions: []string{"Akole", "Jamkhed", "Karjat", "Kopargaon", "Nevasa", "Parner", "Rahata", "Rahuri", "Sangamner", "Shevgaon", "Shrigonda", "Shrirampur"}},
	{Name: "Aurangabad", SubRegions: []string{"Aurangabad City", "Gangapur", "Kannad", "Khuldabad", "Paithan", "Phulambri", "Sillod", "Soegaon", "Vaijapur"}},
	{Name: "Jalgaon", SubRegions: []string{"Amalner", "Bhusawal", "Chalisgaon", "Chopda", "Erandol", "Jalgaon City", "Jamner", "Muktainagar", "Pachora", "Raver", "Yawal"}},
	{Name: "Kolhapur", SubRegions: []string{"Ajara", "Chandgad", "Gadhinglaj", "Hatkanangale", "Kagal", "Karvir", "Panhala", "Radhanagari", "Shahuwadi", "Shirol"}},
	{Name: "Nagpur", SubRegions: []string{"Hingna", "Kamptee", "Katol", "Kalmeshwar", "Nagpur City", "Narkhed", "Parseoni", "Ramtek", "Saoner", "Umred"}},
	{Name: "Nashik", SubRegions: []string{"Baglan", "Chandwad", "Dindori", "Igatpuri", "Kalwan", "Malegaon", "Nandgaon", "Nashik City", "Niphad", "Sinnar", "Yeola"}},
	{Name: "Pune", SubRegions: []string{"Ambegaon", "Baramati", "Bhor", "Daund", "Haveli", "Indapur", "Junnar", "Khed", "Maval", "Mulshi", "Pune City", "Purandar", "Shirur"}},
	{Name: "Sangli", SubRegions: []string{"Atpadi", "Jat", "Kadegaon", "Kavathe Mahankal", "Khanapur", "Miraj", "Palus", "Shirala", "Tasgaon", "Walwa"}},
	{Name: "Satara", SubRegions: []string{"Jaoli", "Karad", "Khandala", "Khatav", "Koregaon", "Mahabaleshwar", "Man", "Patan", "Phaltan", "Satara City", "Wai"}},
	{Name: "Solapur", SubRegions: []string{"Akkalkot", "Barshi", "Karmala", "Madha", "Malshiras", "Mangalvedhe", "Mohol", "Pandharpur", "Sangole", "Solapur City"}},
}
